package schema

import (
	"fmt"
	"strings"

	"github.com/roach88/specatalog/internal/value"
)

// FieldType is the type tag of a field.
type FieldType int

const (
	TypeInvalid FieldType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeString
	TypeText
	TypeDate
	TypeDateTime
	TypeEnum
)

var typeNames = map[FieldType]string{
	TypeInt:      "int",
	TypeFloat:    "float",
	TypeBool:     "bool",
	TypeString:   "string",
	TypeText:     "text",
	TypeDate:     "date",
	TypeDateTime: "datetime",
	TypeEnum:     "enum",
}

func (t FieldType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Kind returns the value kind that holds fields of this type.
func (t FieldType) Kind() value.Kind {
	switch t {
	case TypeInt:
		return value.KindInt
	case TypeFloat:
		return value.KindFloat
	case TypeBool:
		return value.KindBool
	case TypeString, TypeText, TypeEnum:
		return value.KindString
	case TypeDate:
		return value.KindDate
	case TypeDateTime:
		return value.KindTime
	default:
		return value.KindNull
	}
}

// Field describes one column of an entity.
type Field struct {
	Name     string
	Type     FieldType
	Required bool   // NOT NULL
	Unique   bool   // UNIQUE
	Enum     string // allowed-values set for TypeEnum fields
	Managed  bool   // set by the catalog, never by callers
	Identity bool   // fixed once the record exists
	Positive bool   // must be > 0
	FileStem bool   // names a file in the archive
}

// Family groups a base entity with its subtypes.
type Family int

const (
	FamilyMeasurement Family = iota
	FamilyMolecule
)

func (f Family) String() string {
	if f == FamilyMolecule {
		return "molecule"
	}
	return "measurement"
}

// Table returns the base table of the family.
func (f Family) Table() string {
	if f == FamilyMolecule {
		return "molecules"
	}
	return "measurements"
}

// Key returns the primary key column shared by base and subtype tables.
func (f Family) Key() string {
	if f == FamilyMolecule {
		return "mol_id"
	}
	return "ms_id"
}

// Discriminator returns the base column naming the concrete subtype.
func (f Family) Discriminator() string {
	if f == FamilyMolecule {
		return "group"
	}
	return "method"
}

// Base returns the base entity of the family.
func (f Family) Base() *Entity {
	if f == FamilyMolecule {
		return Molecule
	}
	return Measurement
}

// Entity describes a base entity or one of its subtypes.
type Entity struct {
	// Name is the discriminator value and lookup name ("cwepr").
	Name string

	// Title is the display name used for generated shapes ("CWEPR").
	Title string

	Family Family

	// Table is the table holding Own fields.
	Table string

	// Parent is the base entity; nil for base entities.
	Parent *Entity

	// Own lists the fields declared by this entity, excluding inherited ones.
	// For subtypes the key column is implied and not listed.
	Own []Field

	// NameParts lists the fields joined with "-" to form a computed name.
	NameParts []string
}

// IsBase reports whether e is the base entity of its family.
func (e *Entity) IsBase() bool {
	return e.Parent == nil
}

// Abstract reports whether records of e cannot be created directly.
func (e *Entity) Abstract() bool {
	return e.IsBase()
}

// Key returns the primary key field name.
func (e *Entity) Key() string {
	return e.Family.Key()
}

// Fields returns inherited fields followed by own fields, in declaration order.
func (e *Entity) Fields() []Field {
	var fields []Field
	if e.Parent != nil {
		fields = append(fields, e.Parent.Fields()...)
	}
	return append(fields, e.Own...)
}

// Field looks up a field by name.
func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// OwnsField reports whether name is stored in e's own table.
func (e *Entity) OwnsField(name string) bool {
	for _, f := range e.Own {
		if f.Name == name {
			return true
		}
	}
	return false
}

// ComputesName reports whether the name field is derived from NameParts.
func (e *Entity) ComputesName() bool {
	return len(e.NameParts) > 0
}

// IsManaged reports whether f is set by the catalog for records of e.
func (e *Entity) IsManaged(f Field) bool {
	return f.Managed || (f.Name == "name" && e.ComputesName())
}

// Updatable reports whether f may appear in an update patch for e.
func (e *Entity) Updatable(f Field) bool {
	return !f.Identity && !e.IsManaged(f)
}

// ComposeName joins the NameParts values of a record.
func (e *Entity) ComposeName(values map[string]value.Value) string {
	parts := make([]string, 0, len(e.NameParts))
	for _, name := range e.NameParts {
		parts = append(parts, value.Format(values[name]))
	}
	return strings.Join(parts, "-")
}

func (e *Entity) String() string {
	return e.Name
}
