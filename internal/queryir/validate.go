package queryir

import (
	"fmt"

	"github.com/roach88/specatalog/internal/value"
)

// ValidationResult lists the structural problems found in a query.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

// Validate checks a query for problems a backend cannot compile:
// unknown columns, NULL literals, unknown operators and directions.
//
// Validate is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(q)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
	columns  map[string]bool
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	case nil:
		v.addProblem("nil query")
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.From == "" {
		v.addProblem("select has no source table")
	}
	if sel.Key == "" {
		v.addProblem("select has no key column")
	}
	if len(sel.Columns) == 0 {
		v.addProblem("select has no columns")
	}

	v.columns = make(map[string]bool, len(sel.Columns))
	for _, c := range sel.Columns {
		if c.Joined && sel.Join == "" {
			v.addProblem("column %q is joined but select has no join table", c.Name)
		}
		v.columns[c.Name] = true
	}
	if sel.Key != "" && !v.columns[sel.Key] {
		v.addProblem("key %q is not selected", sel.Key)
	}

	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}

	for _, term := range sel.OrderBy {
		v.checkField(term.Field)
		if term.Direction != Asc && term.Direction != Desc {
			v.addProblem("unknown sort direction %q for %q", term.Direction, term.Field)
		}
	}
}

func (v *validator) checkField(name string) {
	if !v.columns[name] {
		v.addProblem("unknown column %q", name)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.checkField(pred.Field)
		if value.IsNull(pred.Value) {
			v.addProblem("column %q compared to NULL", pred.Field)
		}
	case Compare:
		v.checkField(pred.Field)
		switch pred.Op {
		case OpNe, OpGt, OpLt, OpGe, OpLe:
		default:
			v.addProblem("unknown comparison %q on %q", pred.Op, pred.Field)
		}
		if value.IsNull(pred.Value) {
			v.addProblem("column %q compared to NULL", pred.Field)
		}
	case Like:
		v.checkField(pred.Field)
	case Contains:
		v.checkField(pred.Field)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}
