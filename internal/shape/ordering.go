package shape

import (
	"strings"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/queryir"
	"github.com/roach88/specatalog/internal/schema"
)

// OrderingShape lists the sortable fields of Entity.
type OrderingShape struct {
	Name   string
	Entity *schema.Entity
	Fields []string
}

// MakeOrdering derives the ordering shape of e.
func MakeOrdering(e *schema.Entity) (*OrderingShape, error) {
	fields, err := checkEntity(e)
	if err != nil {
		return nil, err
	}

	s := &OrderingShape{Name: e.Title + "Ordering", Entity: e}
	for _, f := range fields {
		if !orderable[f.Type] {
			return nil, catalogerr.Configuration(e.Name, "field %q has no ordering mapping for type %s", f.Name, f.Type)
		}
		s.Fields = append(s.Fields, f.Name)
	}
	return s, nil
}

// Sortable reports whether field can be used as a sort key.
func (s *OrderingShape) Sortable(field string) bool {
	for _, f := range s.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// New returns an empty ordering of this shape.
func (s *OrderingShape) New() *Ordering {
	return &Ordering{shape: s}
}

// Ordering is a list of sort terms applied in order. The entity key is
// always the final tiebreaker.
type Ordering struct {
	shape *OrderingShape
	terms []queryir.OrderTerm
}

// By appends a sort term.
func (o *Ordering) By(field string, dir queryir.Direction) error {
	e := o.shape.Entity
	if !o.shape.Sortable(field) {
		return catalogerr.Validation(e.Name, field, "cannot order by unknown field")
	}
	if dir != queryir.Asc && dir != queryir.Desc {
		return catalogerr.Validation(e.Name, field, "unknown direction %q (want asc or desc)", dir)
	}
	for _, t := range o.terms {
		if t.Field == field {
			return catalogerr.Validation(e.Name, field, "ordered more than once")
		}
	}
	o.terms = append(o.terms, queryir.OrderTerm{Field: field, Direction: dir})
	return nil
}

// Parse appends a term written as "field", "field:asc", "field:desc" or
// "-field".
func (o *Ordering) Parse(term string) error {
	term = strings.TrimSpace(term)
	if rest, ok := strings.CutPrefix(term, "-"); ok {
		return o.By(rest, queryir.Desc)
	}
	field, dir, ok := strings.Cut(term, ":")
	if !ok {
		return o.By(field, queryir.Asc)
	}
	return o.By(field, queryir.Direction(strings.ToLower(dir)))
}

// Terms returns a copy of the sort terms.
func (o *Ordering) Terms() []queryir.OrderTerm {
	out := make([]queryir.OrderTerm, len(o.terms))
	copy(out, o.terms)
	return out
}

// Len returns the number of sort terms.
func (o *Ordering) Len() int {
	return len(o.terms)
}
