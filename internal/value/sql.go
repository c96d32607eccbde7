package value

import (
	"fmt"
	"math"
)

// SQL converts v to a database/sql parameter.
// Bools become 0/1 and dates/timestamps become text so that SQLite
// comparisons and ordering stay lexicographic.
func SQL(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case Date:
		return val.String()
	case Time:
		return val.String()
	default:
		return nil
	}
}

// FromSQL converts a scanned column into a Value of the requested kind.
// A NULL column always yields Null regardless of kind.
func FromSQL(kind Kind, src any) (Value, error) {
	if src == nil {
		return Null{}, nil
	}

	switch kind {
	case KindString:
		s, err := asString(src)
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case KindInt:
		switch n := src.(type) {
		case int64:
			return Int(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("scan int: non-integral value %v", n)
			}
			return Int(int64(n)), nil
		}
	case KindFloat:
		switch n := src.(type) {
		case float64:
			return Float(n), nil
		case int64:
			return Float(float64(n)), nil
		}
	case KindBool:
		switch n := src.(type) {
		case int64:
			return Bool(n != 0), nil
		case bool:
			return Bool(n), nil
		}
	case KindDate:
		s, err := asString(src)
		if err != nil {
			return nil, err
		}
		return ParseDate(s)
	case KindTime:
		s, err := asString(src)
		if err != nil {
			return nil, err
		}
		return ParseTime(s)
	}

	return nil, fmt.Errorf("scan %s: unexpected column type %T", kind, src)
}

func asString(src any) (string, error) {
	switch s := src.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("scan text: unexpected column type %T", src)
	}
}
