package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specatalog/internal/queryir"
	"github.com/roach88/specatalog/internal/value"
)

func moleculeSelect() queryir.Select {
	return queryir.Select{
		From: "molecules",
		Key:  "mol_id",
		Columns: []queryir.Column{
			{Name: "mol_id"},
			{Name: "name"},
			{Name: "group"},
		},
	}
}

func TestCompile_BaseSelect(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(moleculeSelect())
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT b."mol_id", b."name", b."group" FROM "molecules" AS b ORDER BY b."mol_id" ASC`,
		sql)
	assert.Empty(t, params)
}

func TestCompile_JoinedSelect(t *testing.T) {
	q := queryir.Select{
		From: "measurements",
		Join: "cwepr",
		Key:  "ms_id",
		Columns: []queryir.Column{
			{Name: "ms_id"},
			{Name: "temperature"},
			{Name: "frequency_band", Joined: true},
		},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "frequency_band", Value: value.String("X")},
			queryir.Compare{Field: "temperature", Op: queryir.OpGt, Value: value.Float(80)},
		}},
		OrderBy: []queryir.OrderTerm{{Field: "temperature", Direction: queryir.Desc}},
	}

	sql, params, err := NewSQLCompiler().Compile(&q)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT b."ms_id", b."temperature", s."frequency_band" FROM "measurements" AS b`+
			` JOIN "cwepr" AS s ON s."ms_id" = b."ms_id"`+
			` WHERE s."frequency_band" = ? AND b."temperature" > ?`+
			` ORDER BY b."temperature" COLLATE BINARY DESC, b."ms_id" ASC`,
		sql)
	assert.Equal(t, []any{"X", float64(80)}, params)
}

func TestCompile_ValuesAreParameterized(t *testing.T) {
	q := moleculeSelect()
	q.Filter = queryir.Equals{Field: "name", Value: value.String("'; DROP TABLE molecules; --")}

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP")
	assert.Equal(t, []any{"'; DROP TABLE molecules; --"}, params)
}

func TestCompile_StringPredicates(t *testing.T) {
	tests := []struct {
		name   string
		pred   queryir.Predicate
		where  string
		params []any
	}{
		{
			name:   "like",
			pred:   queryir.Like{Field: "name", Pattern: "PDI%"},
			where:  `b."name" LIKE ?`,
			params: []any{"PDI%"},
		},
		{
			name:   "ilike",
			pred:   queryir.Like{Field: "name", Pattern: "pdi%", CaseInsensitive: true},
			where:  `lower(b."name") LIKE lower(?)`,
			params: []any{"pdi%"},
		},
		{
			name:   "contains",
			pred:   queryir.Contains{Field: "name", Substring: "_%"},
			where:  `instr(b."name", ?) > 0`,
			params: []any{"_%"},
		},
		{
			name:  "empty and",
			pred:  queryir.And{},
			where: `1 = 1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := moleculeSelect()
			q.Filter = tt.pred
			sql, params, err := NewSQLCompiler().Compile(q)
			require.NoError(t, err)
			assert.Contains(t, sql, " WHERE "+tt.where+" ORDER BY")
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestCompile_ValueConversion(t *testing.T) {
	q := queryir.Select{
		From: "measurements",
		Key:  "ms_id",
		Columns: []queryir.Column{
			{Name: "ms_id"}, {Name: "corrected"}, {Name: "date"},
		},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "corrected", Value: value.Bool(true)},
			queryir.Compare{Field: "date", Op: queryir.OpGe, Value: value.NewDate(2024, 3, 1)},
		}},
	}

	_, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "2024-03-01"}, params)
}

func TestCompile_NestedAndIsParenthesized(t *testing.T) {
	q := moleculeSelect()
	q.Filter = queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: "group", Value: value.String("rp")},
		queryir.And{Predicates: []queryir.Predicate{
			queryir.Like{Field: "name", Pattern: "TRP%"},
			queryir.Compare{Field: "mol_id", Op: queryir.OpLe, Value: value.Int(10)},
		}},
	}}

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, `WHERE b."group" = ? AND (b."name" LIKE ? AND b."mol_id" <= ?)`)
	assert.Equal(t, []any{"rp", "TRP%", int64(10)}, params)
}

func TestCompile_OrderByKeyReplacesTiebreaker(t *testing.T) {
	q := moleculeSelect()
	q.OrderBy = []queryir.OrderTerm{
		{Field: "group", Direction: queryir.Asc},
		{Field: "mol_id", Direction: queryir.Desc},
	}

	sql, _, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, `ORDER BY b."group" COLLATE BINARY ASC, b."mol_id" DESC`)
	assert.NotContains(t, sql, `"mol_id" ASC`)
}

func TestCompile_RejectsInvalidQuery(t *testing.T) {
	q := moleculeSelect()
	q.Filter = queryir.Equals{Field: "smiles", Value: value.String("C")}

	_, _, err := NewSQLCompiler().Compile(q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown column "smiles"`)

	_, _, err = NewSQLCompiler().Compile(nil)
	require.Error(t, err)
}
