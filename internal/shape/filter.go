package shape

import (
	"sort"
	"strings"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/queryir"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/value"
)

// Slot is one optional predicate of a filter shape.
type Slot struct {
	Key   string
	Field schema.Field
	Op    Op
}

// FilterShape lists every predicate a filter on Entity may carry.
type FilterShape struct {
	Name   string
	Entity *schema.Entity
	Slots  []Slot
}

// MakeFilter derives the filter shape of e. Every field becomes optional;
// ordered types get range operators, strings get pattern operators.
func MakeFilter(e *schema.Entity) (*FilterShape, error) {
	fields, err := checkEntity(e)
	if err != nil {
		return nil, err
	}

	s := &FilterShape{Name: e.Title + "Filter", Entity: e}
	for _, f := range fields {
		ops, ok := predicates[f.Type]
		if !ok {
			return nil, catalogerr.Configuration(e.Name, "field %q has no predicate mapping for type %s", f.Name, f.Type)
		}
		for _, op := range ops {
			key := f.Name
			if op != OpEq {
				key = f.Name + KeySeparator + string(op)
			}
			s.Slots = append(s.Slots, Slot{Key: key, Field: f, Op: op})
		}
	}
	return s, nil
}

// Slot looks up a predicate by key ("temperature__gt").
func (s *FilterShape) Slot(key string) (Slot, bool) {
	for _, slot := range s.Slots {
		if slot.Key == key {
			return slot, true
		}
	}
	return Slot{}, false
}

// New returns an empty filter of this shape.
func (s *FilterShape) New() *Filter {
	return &Filter{shape: s, terms: map[string]value.Value{}}
}

// Filter is a set of predicates combined with AND.
type Filter struct {
	shape *FilterShape
	terms map[string]value.Value
}

// Shape returns the shape f was created from.
func (f *Filter) Shape() *FilterShape {
	return f.shape
}

// Set adds or replaces the predicate for key.
func (f *Filter) Set(key string, v value.Value) error {
	slot, err := f.slot(key)
	if err != nil {
		return err
	}
	if value.IsNull(v) {
		return catalogerr.Validation(f.shape.Entity.Name, slot.Field.Name, "filter %q needs a value", key)
	}
	v, err = schema.Coerce(f.shape.Entity, slot.Field, v)
	if err != nil {
		return err
	}
	f.terms[key] = v
	return nil
}

// SetRaw parses raw for the field behind key and sets it.
func (f *Filter) SetRaw(key, raw string) error {
	slot, err := f.slot(key)
	if err != nil {
		return err
	}
	v, err := schema.Parse(f.shape.Entity, slot.Field, raw)
	if err != nil {
		return err
	}
	return f.Set(key, v)
}

func (f *Filter) slot(key string) (Slot, error) {
	slot, ok := f.shape.Slot(key)
	if ok {
		return slot, nil
	}
	name, op, _ := strings.Cut(key, KeySeparator)
	if _, known := f.shape.Entity.Field(name); known {
		return Slot{}, catalogerr.Validation(f.shape.Entity.Name, name, "operator %q is not supported", op)
	}
	return Slot{}, catalogerr.Validation(f.shape.Entity.Name, name, "unknown field")
}

// Get returns the value set for key.
func (f *Filter) Get(key string) (value.Value, bool) {
	v, ok := f.terms[key]
	return v, ok
}

// Len returns the number of predicates set.
func (f *Filter) Len() int {
	return len(f.terms)
}

// Keys returns the keys set, sorted.
func (f *Filter) Keys() []string {
	keys := make([]string, 0, len(f.terms))
	for k := range f.terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Predicate returns the conjunction of the set predicates in shape order,
// or nil when the filter is empty.
func (f *Filter) Predicate() queryir.Predicate {
	if len(f.terms) == 0 {
		return nil
	}

	preds := make([]queryir.Predicate, 0, len(f.terms))
	for _, slot := range f.shape.Slots {
		v, ok := f.terms[slot.Key]
		if !ok {
			continue
		}
		name := slot.Field.Name
		switch slot.Op {
		case OpEq:
			preds = append(preds, queryir.Equals{Field: name, Value: v})
		case OpLike:
			preds = append(preds, queryir.Like{Field: name, Pattern: value.Format(v)})
		case OpILike:
			preds = append(preds, queryir.Like{Field: name, Pattern: value.Format(v), CaseInsensitive: true})
		case OpContains:
			preds = append(preds, queryir.Contains{Field: name, Substring: value.Format(v)})
		default:
			preds = append(preds, queryir.Compare{Field: name, Op: compareOps[slot.Op], Value: v})
		}
	}
	return queryir.And{Predicates: preds}
}
