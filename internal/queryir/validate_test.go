package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/specatalog/internal/value"
)

func cweprSelect() Select {
	return Select{
		From: "measurements",
		Join: "cwepr",
		Key:  "ms_id",
		Columns: []Column{
			{Name: "ms_id"},
			{Name: "temperature"},
			{Name: "frequency_band", Joined: true},
		},
	}
}

func TestValidate_ValidSelect(t *testing.T) {
	sel := cweprSelect()
	sel.Filter = And{Predicates: []Predicate{
		Equals{Field: "frequency_band", Value: value.String("X")},
		Compare{Field: "temperature", Op: OpGe, Value: value.Float(80)},
	}}
	sel.OrderBy = []OrderTerm{{Field: "temperature", Direction: Desc}}

	res := Validate(sel)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Problems)
}

func TestValidate_PointerSelect(t *testing.T) {
	sel := cweprSelect()
	assert.True(t, Validate(&sel).Valid)
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Select)
		want   string
	}{
		{
			name:   "unknown filter column",
			mutate: func(s *Select) { s.Filter = Equals{Field: "nope", Value: value.Int(1)} },
			want:   `unknown column "nope"`,
		},
		{
			name:   "null literal",
			mutate: func(s *Select) { s.Filter = Equals{Field: "temperature", Value: value.Null{}} },
			want:   `column "temperature" compared to NULL`,
		},
		{
			name: "unknown comparison",
			mutate: func(s *Select) {
				s.Filter = Compare{Field: "temperature", Op: "!~", Value: value.Float(1)}
			},
			want: `unknown comparison "!~" on "temperature"`,
		},
		{
			name:   "bad direction",
			mutate: func(s *Select) { s.OrderBy = []OrderTerm{{Field: "ms_id", Direction: "up"}} },
			want:   `unknown sort direction "up" for "ms_id"`,
		},
		{
			name:   "joined column without join",
			mutate: func(s *Select) { s.Join = "" },
			want:   `column "frequency_band" is joined but select has no join table`,
		},
		{
			name:   "key not selected",
			mutate: func(s *Select) { s.Columns = s.Columns[1:] },
			want:   `key "ms_id" is not selected`,
		},
		{
			name: "nested unknown column",
			mutate: func(s *Select) {
				s.Filter = And{Predicates: []Predicate{And{Predicates: []Predicate{Contains{Field: "x", Substring: "a"}}}}}
			},
			want: `unknown column "x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := cweprSelect()
			tt.mutate(&sel)
			res := Validate(sel)
			assert.False(t, res.Valid)
			assert.Contains(t, res.Problems, tt.want)
		})
	}
}

func TestValidate_NilQuery(t *testing.T) {
	res := Validate(nil)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"nil query"}, res.Problems)

	var sel *Select
	assert.False(t, Validate(sel).Valid)
}

func TestFields(t *testing.T) {
	p := And{Predicates: []Predicate{
		Equals{Field: "a", Value: value.Int(1)},
		And{Predicates: []Predicate{
			Like{Field: "b", Pattern: "x%"},
			Contains{Field: "c", Substring: "y"},
		}},
		Compare{Field: "d", Op: OpLt, Value: value.Int(2)},
	}}
	assert.Equal(t, []string{"a", "b", "c", "d"}, Fields(p))
	assert.Nil(t, Fields(nil))
}
