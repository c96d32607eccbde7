// Package querysql compiles queryir trees to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/specatalog/internal/queryir"
	"github.com/roach88/specatalog/internal/value"
)

// Table aliases used in compiled SQL.
const (
	baseAlias   = "b"
	joinedAlias = "s"
)

// SQLCompiler compiles queries to parameterized SQL for SQLite.
//
// Every query ends its ORDER BY with the key column so that results are
// stable across runs. Values are always bound as parameters, never
// interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to (sql, params).
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if res := queryir.Validate(q); !res.Valid {
		return "", nil, fmt.Errorf("invalid query: %s", strings.Join(res.Problems, "; "))
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect builds the SELECT for a base or joined entity.
func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	cols := make(map[string]string, len(q.Columns))
	parts := make([]string, 0, len(q.Columns))
	for _, col := range q.Columns {
		ref := qualify(col)
		cols[col.Name] = ref
		parts = append(parts, ref)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(q.From))
	sb.WriteString(" AS " + baseAlias)
	if q.Join != "" {
		fmt.Fprintf(&sb, " JOIN %s AS %s ON %s.%s = %s.%s",
			quoteIdent(q.Join), joinedAlias,
			joinedAlias, quoteIdent(q.Key),
			baseAlias, quoteIdent(q.Key))
	}

	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter, cols)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(filterSQL)
		params = filterParams
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(c.orderBy(q, cols))

	return sb.String(), params, nil
}

// orderBy renders the requested terms followed by the key tiebreaker.
// COLLATE BINARY keeps text ordering identical across SQLite builds.
func (c *SQLCompiler) orderBy(q queryir.Select, cols map[string]string) string {
	key := baseAlias + "." + quoteIdent(q.Key)
	var terms []string
	for _, t := range q.OrderBy {
		if t.Field == q.Key {
			terms = append(terms, fmt.Sprintf("%s %s", key, strings.ToUpper(string(t.Direction))))
			return strings.Join(terms, ", ")
		}
		terms = append(terms, fmt.Sprintf("%s COLLATE BINARY %s", cols[t.Field], strings.ToUpper(string(t.Direction))))
	}
	terms = append(terms, key+" ASC")
	return strings.Join(terms, ", ")
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate, cols map[string]string) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return cols[pred.Field] + " = ?", []any{value.SQL(pred.Value)}, nil
	case queryir.Compare:
		return fmt.Sprintf("%s %s ?", cols[pred.Field], pred.Op), []any{value.SQL(pred.Value)}, nil
	case queryir.Like:
		if pred.CaseInsensitive {
			return fmt.Sprintf("lower(%s) LIKE lower(?)", cols[pred.Field]), []any{pred.Pattern}, nil
		}
		return cols[pred.Field] + " LIKE ?", []any{pred.Pattern}, nil
	case queryir.Contains:
		return fmt.Sprintf("instr(%s, ?) > 0", cols[pred.Field]), []any{pred.Substring}, nil
	case queryir.And:
		return c.compileAnd(pred, cols)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileAnd(and queryir.And, cols map[string]string) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	sqlParts := make([]string, 0, len(and.Predicates))
	var allParams []any
	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred, cols)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	return strings.Join(sqlParts, " AND "), allParams, nil
}

func qualify(col queryir.Column) string {
	if col.Joined {
		return joinedAlias + "." + quoteIdent(col.Name)
	}
	return baseAlias + "." + quoteIdent(col.Name)
}

// quoteIdent double-quotes an identifier. Needed for columns such as
// "group" that collide with SQL keywords.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
