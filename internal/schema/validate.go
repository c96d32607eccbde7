package schema

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/value"
)

// AllowedValues resolves an allowed-values set by name.
// Implemented by registry.Table.
type AllowedValues interface {
	Lookup(set string) ([]string, bool)
}

// Coerce converts v to the value kind of f.
// Ints are widened for float fields and strings are NFC-normalized.
// Null passes through unchanged; requiredness is checked separately.
func Coerce(e *Entity, f Field, v value.Value) (value.Value, error) {
	if value.IsNull(v) {
		return value.Null{}, nil
	}

	want := f.Type.Kind()
	if want == value.KindNull {
		return nil, catalogerr.Configuration(e.Name, "field %q has unsupported type %s", f.Name, f.Type)
	}

	switch {
	case v.Kind() == want:
	case want == value.KindFloat && v.Kind() == value.KindInt:
		v = value.Float(float64(v.(value.Int)))
	default:
		return nil, catalogerr.Validation(e.Name, f.Name, "expected %s, got %s", f.Type, v.Kind())
	}

	if s, ok := v.(value.String); ok {
		v = value.String(norm.NFC.String(string(s)))
	}
	return v, nil
}

// Parse converts a textual value (CLI flags, filter arguments) for field f.
func Parse(e *Entity, f Field, raw string) (value.Value, error) {
	switch f.Type {
	case TypeInt:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, catalogerr.Validation(e.Name, f.Name, "invalid int %q", raw)
		}
		return value.Int(n), nil
	case TypeFloat:
		x, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, catalogerr.Validation(e.Name, f.Name, "invalid float %q", raw)
		}
		return value.Float(x), nil
	case TypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, catalogerr.Validation(e.Name, f.Name, "invalid bool %q", raw)
		}
		return value.Bool(b), nil
	case TypeString, TypeText, TypeEnum:
		return value.String(norm.NFC.String(raw)), nil
	case TypeDate:
		d, err := value.ParseDate(strings.TrimSpace(raw))
		if err != nil {
			return nil, catalogerr.Validation(e.Name, f.Name, "invalid date %q (want YYYY-MM-DD)", raw)
		}
		return d, nil
	case TypeDateTime:
		t, err := value.ParseTime(strings.TrimSpace(raw))
		if err != nil {
			return nil, catalogerr.Validation(e.Name, f.Name, "invalid datetime %q (want RFC 3339)", raw)
		}
		return t, nil
	default:
		return nil, catalogerr.Configuration(e.Name, "field %q has unsupported type %s", f.Name, f.Type)
	}
}

// FromAny converts a decoded YAML or JSON scalar for field f.
func FromAny(e *Entity, f Field, raw any) (value.Value, error) {
	var v value.Value
	switch x := raw.(type) {
	case nil:
		return value.Null{}, nil
	case string:
		if f.Type == TypeString || f.Type == TypeText || f.Type == TypeEnum {
			v = value.String(x)
		} else {
			return Parse(e, f, x)
		}
	case bool:
		v = value.Bool(x)
	case int:
		v = value.Int(int64(x))
	case int64:
		v = value.Int(x)
	case uint64:
		v = value.Int(int64(x))
	case float64:
		if f.Type == TypeInt && x == float64(int64(x)) {
			v = value.Int(int64(x))
		} else {
			v = value.Float(x)
		}
	case time.Time:
		if f.Type == TypeDate {
			v = value.DateOf(x)
		} else {
			v = value.NewTime(x)
		}
	default:
		return nil, catalogerr.Validation(e.Name, f.Name, "unsupported value type %T", raw)
	}
	return Coerce(e, f, v)
}

// checkConstraints applies the per-value rules shared by create and update.
func checkConstraints(e *Entity, f Field, v value.Value, allowed AllowedValues) error {
	if value.IsNull(v) {
		if f.Required {
			return catalogerr.Validation(e.Name, f.Name, "field is required")
		}
		return nil
	}

	if f.Positive {
		var x float64
		switch n := v.(type) {
		case value.Float:
			x = float64(n)
		case value.Int:
			x = float64(n)
		}
		if x <= 0 {
			return catalogerr.Validation(e.Name, f.Name, "must be greater than 0, got %s", value.Format(v))
		}
	}

	if f.FileStem {
		s := value.Format(v)
		if s == "" || s == "." || strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
			return catalogerr.Validation(e.Name, f.Name, "%q cannot be used as a file name", s)
		}
	}

	if f.Type == TypeEnum && allowed != nil {
		set, ok := allowed.Lookup(f.Enum)
		if !ok {
			return catalogerr.Validation(e.Name, f.Name, "no allowed values defined for set %q", f.Enum)
		}
		s := string(v.(value.String))
		if !slices.Contains(set, s) {
			return catalogerr.Validation(e.Name, f.Name, "%q is not an allowed value (allowed: %s)", s, quoteAll(set))
		}
	}
	return nil
}

// ValidateCreate checks the caller-supplied fields of a new record and
// returns them coerced. Managed fields are rejected; the catalog sets them.
func ValidateCreate(e *Entity, in map[string]value.Value, allowed AllowedValues) (map[string]value.Value, error) {
	if e.Abstract() {
		return nil, catalogerr.Validation(e.Name, "", "%s is abstract; create one of its subtypes", e.Name)
	}

	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]value.Value, len(in))
	for _, k := range keys {
		f, ok := e.Field(k)
		if !ok {
			return nil, catalogerr.Validation(e.Name, k, "unknown field")
		}
		if e.IsManaged(f) {
			return nil, catalogerr.Validation(e.Name, k, "field is set automatically")
		}
		v, err := Coerce(e, f, in[k])
		if err != nil {
			return nil, err
		}
		out[k] = v
	}

	for _, f := range e.Fields() {
		if e.IsManaged(f) {
			continue
		}
		v, ok := out[f.Name]
		if !ok {
			v = value.Null{}
		}
		if err := checkConstraints(e, f, v, allowed); err != nil {
			return nil, err
		}
		if !ok {
			out[f.Name] = value.Null{}
		}
	}
	return out, nil
}

// ValidateChanges checks patch values against field constraints.
// Fields must already be known to be updatable.
func ValidateChanges(e *Entity, changes map[string]value.Value, allowed AllowedValues) error {
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, ok := e.Field(k)
		if !ok {
			return catalogerr.Validation(e.Name, k, "unknown field")
		}
		if err := checkConstraints(e, f, changes[k], allowed); err != nil {
			return err
		}
	}
	return nil
}

func quoteAll(set []string) string {
	quoted := make([]string, len(set))
	for i, s := range set {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
