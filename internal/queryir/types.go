package queryir

import "github.com/roach88/specatalog/internal/value"

// Query represents an abstract query.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend compilers.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal
//   - Compare: field <op> literal, for ordered types
//   - Like: field LIKE pattern, optionally case-insensitive
//   - Contains: substring match
//   - And: all predicates must be true
//
// There is no OR. Filters are conjunctive.
type Predicate interface {
	predicateNode()
}

// Column is one selected column.
// Joined columns live in the subtype table, the rest in the base table.
type Column struct {
	Name   string
	Joined bool
}

// Select reads rows of one entity.
//
// Semantics:
//
//	SELECT <columns> FROM <From> [JOIN <Join> USING (<Key>)]
//	WHERE <filter> ORDER BY <order>, <Key>
//
// Entities stored across a base table and a subtype table are read with an
// inner join on the shared key, so a subtype query never returns rows of a
// sibling subtype. Base queries leave Join empty.
type Select struct {
	From    string
	Join    string
	Key     string
	Columns []Column
	Filter  Predicate // nil = no filter
	OrderBy []OrderTerm
}

func (Select) queryNode() {}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderTerm is one ORDER BY key.
type OrderTerm struct {
	Field     string
	Direction Direction
}

// Equals represents field = value.
//
// NULL never equals anything; Equals with a Null value is rejected by
// Validate.
type Equals struct {
	Field string
	Value value.Value
}

func (Equals) predicateNode() {}

// CompareOp is an ordering comparison.
type CompareOp string

const (
	OpNe CompareOp = "<>"
	OpGt CompareOp = ">"
	OpLt CompareOp = "<"
	OpGe CompareOp = ">="
	OpLe CompareOp = "<="
)

// Compare represents field <op> value.
type Compare struct {
	Field string
	Op    CompareOp
	Value value.Value
}

func (Compare) predicateNode() {}

// Like represents a LIKE pattern match using % and _ wildcards.
type Like struct {
	Field           string
	Pattern         string
	CaseInsensitive bool
}

func (Like) predicateNode() {}

// Contains matches values containing Substring literally.
type Contains struct {
	Field     string
	Substring string
}

func (Contains) predicateNode() {}

// And represents a conjunction of predicates.
// An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Fields returns the field names referenced by p, in traversal order.
func Fields(p Predicate) []string {
	var out []string
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch pred := p.(type) {
		case Equals:
			out = append(out, pred.Field)
		case Compare:
			out = append(out, pred.Field)
		case Like:
			out = append(out, pred.Field)
		case Contains:
			out = append(out, pred.Field)
		case And:
			for _, sub := range pred.Predicates {
				walk(sub)
			}
		}
	}
	walk(p)
	return out
}
