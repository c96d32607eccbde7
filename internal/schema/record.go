package schema

import (
	"github.com/roach88/specatalog/internal/value"
)

// Record is one row of an entity, keyed by field name.
type Record struct {
	Entity *Entity
	Values map[string]value.Value
}

// ID returns the primary key of the record, or 0 if unset.
func (r Record) ID() int64 {
	if n, ok := r.Values[r.Entity.Key()].(value.Int); ok {
		return int64(n)
	}
	return 0
}

// Get returns the value of a field, or Null if absent.
func (r Record) Get(name string) value.Value {
	if v, ok := r.Values[name]; ok && v != nil {
		return v
	}
	return value.Null{}
}

// Text returns the formatted value of a field.
func (r Record) Text(name string) string {
	return value.Format(r.Get(name))
}

// Clone returns a copy whose Values map can be modified independently.
func (r Record) Clone() Record {
	values := make(map[string]value.Value, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return Record{Entity: r.Entity, Values: values}
}

// Ordered returns field names and values in declaration order.
func (r Record) Ordered() ([]string, []value.Value) {
	fields := r.Entity.Fields()
	names := make([]string, 0, len(fields))
	vals := make([]value.Value, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
		vals = append(vals, r.Get(f.Name))
	}
	return names, vals
}

// MarshalMap returns a JSON-friendly map of the record.
func (r Record) MarshalMap() map[string]any {
	out := make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		out[k] = v
	}
	return out
}
