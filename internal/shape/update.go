package shape

import (
	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/value"
)

// UpdateShape lists the fields a patch on Entity may change.
// Identity and catalog-managed fields are excluded.
type UpdateShape struct {
	Name   string
	Entity *schema.Entity
	Fields []schema.Field
}

// MakeUpdate derives the update shape of e.
func MakeUpdate(e *schema.Entity) (*UpdateShape, error) {
	fields, err := checkEntity(e)
	if err != nil {
		return nil, err
	}

	s := &UpdateShape{Name: e.Title + "Update", Entity: e}
	for _, f := range fields {
		if f.Type.Kind() == value.KindNull {
			return nil, catalogerr.Configuration(e.Name, "field %q has unsupported type %s", f.Name, f.Type)
		}
		if e.Updatable(f) {
			s.Fields = append(s.Fields, f)
		}
	}
	return s, nil
}

// Field looks up an updatable field.
func (s *UpdateShape) Field(name string) (schema.Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return schema.Field{}, false
}

// New returns an empty patch of this shape.
func (s *UpdateShape) New() *Patch {
	return &Patch{shape: s, set: map[string]value.Value{}}
}

// Patch is a partial update. Fields never set are left unchanged; a field
// set to value.Null is cleared.
type Patch struct {
	shape *UpdateShape
	set   map[string]value.Value
}

// Shape returns the shape p was created from.
func (p *Patch) Shape() *UpdateShape {
	return p.shape
}

// Set assigns a field. A nil or Null value clears the field.
func (p *Patch) Set(name string, v value.Value) error {
	f, err := p.field(name)
	if err != nil {
		return err
	}
	v, err = schema.Coerce(p.shape.Entity, f, v)
	if err != nil {
		return err
	}
	p.set[name] = v
	return nil
}

// SetRaw parses raw for the field and assigns it.
func (p *Patch) SetRaw(name, raw string) error {
	f, err := p.field(name)
	if err != nil {
		return err
	}
	v, err := schema.Parse(p.shape.Entity, f, raw)
	if err != nil {
		return err
	}
	p.set[name] = v
	return nil
}

// SetNull clears a field.
func (p *Patch) SetNull(name string) error {
	return p.Set(name, value.Null{})
}

// Unset removes a field from the patch.
func (p *Patch) Unset(name string) {
	delete(p.set, name)
}

func (p *Patch) field(name string) (schema.Field, error) {
	if f, ok := p.shape.Field(name); ok {
		return f, nil
	}
	e := p.shape.Entity
	if _, known := e.Field(name); known {
		return schema.Field{}, catalogerr.Validation(e.Name, name, "field cannot be updated")
	}
	return schema.Field{}, catalogerr.Validation(e.Name, name, "unknown field")
}

// Lookup distinguishes an absent field (ok false) from one set to Null.
func (p *Patch) Lookup(name string) (value.Value, bool) {
	v, ok := p.set[name]
	return v, ok
}

// Len returns the number of fields present.
func (p *Patch) Len() int {
	return len(p.set)
}

// Fields returns the present fields in shape order.
func (p *Patch) Fields() []string {
	out := make([]string, 0, len(p.set))
	for _, f := range p.shape.Fields {
		if _, ok := p.set[f.Name]; ok {
			out = append(out, f.Name)
		}
	}
	return out
}

// Changes returns a copy of the present fields.
func (p *Patch) Changes() map[string]value.Value {
	out := make(map[string]value.Value, len(p.set))
	for k, v := range p.set {
		out[k] = v
	}
	return out
}
