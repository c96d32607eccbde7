// Package value provides the typed scalar values stored in catalog records.
//
// Value is a sealed interface: only the types in this package implement it.
// Null is an explicit value, so a record field or patch entry that is present
// but null stays distinguishable from one that is absent.
package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the concrete type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindDate
	KindTime
)

var kindNames = [...]string{
	KindNull:   "null",
	KindString: "string",
	KindInt:    "int",
	KindFloat:  "float",
	KindBool:   "bool",
	KindDate:   "date",
	KindTime:   "datetime",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DateLayout is the storage and display format for Date values.
const DateLayout = "2006-01-02"

// TimeLayout is the storage format for Time values. Always UTC, so the text
// form sorts chronologically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Value is a sealed interface over the scalar types a record field can hold.
type Value interface {
	Kind() Kind
	value() // Sealed
}

// Null is an explicit SQL NULL.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value()     {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String holds string and text fields, and enum members.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// Int holds integer fields and identifiers.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) value()     {}

// Float holds floating point measurement parameters.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (Float) value()     {}

// Bool holds boolean flags.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// Date is a calendar date at UTC midnight.
type Date time.Time

func (Date) Kind() Kind { return KindDate }
func (Date) value()     {}

// NewDate builds a Date from its calendar components.
func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date(t), nil
}

// Time returns the underlying time.Time.
func (d Date) Time() time.Time { return time.Time(d) }

func (d Date) String() string { return time.Time(d).Format(DateLayout) }

// MarshalJSON implements json.Marshaler for Date.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Time is a UTC timestamp.
type Time time.Time

func (Time) Kind() Kind { return KindTime }
func (Time) value()     {}

// NewTime converts t to UTC and drops the monotonic reading.
func NewTime(t time.Time) Time {
	return Time(t.UTC())
}

// ParseTime parses a timestamp in TimeLayout or RFC 3339.
func ParseTime(s string) (Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Time{}, fmt.Errorf("parse datetime %q: %w", s, err)
	}
	return NewTime(t), nil
}

// Time returns the underlying time.Time.
func (t Time) Time() time.Time { return time.Time(t) }

func (t Time) String() string { return time.Time(t).UTC().Format(TimeLayout) }

// MarshalJSON implements json.Marshaler for Time.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// IsNull reports whether v is nil or an explicit Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Equal reports whether a and b hold the same kind and content.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch av := a.(type) {
	case Date:
		bv, ok := b.(Date)
		return ok && av.Time().Equal(bv.Time())
	case Time:
		bv, ok := b.(Time)
		return ok && av.Time().Equal(bv.Time())
	default:
		return a == b
	}
}

// Format renders v for human-readable output.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Date:
		return val.String()
	case Time:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
