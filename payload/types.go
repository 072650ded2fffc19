package payload

import (
	"math"
	"strings"

	"github.com/mkpace/file-provider/errors"
)

// Type is the value type of a table column.
type Type int

const (
	// TypeNull marks a column holding only nulls. It unifies with every
	// other type.
	TypeNull Type = iota
	TypeString
	TypeInt64
	TypeFloat64
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeString:
		return "string"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseType is the inverse of Type.String.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "null":
		return TypeNull, nil
	case "string":
		return TypeString, nil
	case "int64":
		return TypeInt64, nil
	case "float64":
		return TypeFloat64, nil
	case "bool":
		return TypeBool, nil
	default:
		return TypeNull, errors.Newf(errors.CodeValidation, "unknown column type %q", name)
	}
}

// Unify returns the narrowest type able to hold values of both a and b.
// Null unifies with anything and int64 widens to float64; any other pair
// of distinct types does not unify.
func Unify(a, b Type) (Type, bool) {
	switch {
	case a == b || b == TypeNull:
		return a, true
	case a == TypeNull:
		return b, true
	case (a == TypeInt64 && b == TypeFloat64) || (a == TypeFloat64 && b == TypeInt64):
		return TypeFloat64, true
	default:
		return TypeNull, false
	}
}

// typeOf reports the Type of a normalized cell value.
func typeOf(v any) Type {
	switch v.(type) {
	case string:
		return TypeString
	case int64:
		return TypeInt64
	case float64:
		return TypeFloat64
	case bool:
		return TypeBool
	default:
		return TypeNull
	}
}

// normalizeScalar converts Go scalar values to the canonical cell
// representation: nil, string, int64, float64, or bool.
func normalizeScalar(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case string, int64, float64, bool:
		return x, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint:
		return uintValue(uint64(x))
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return uintValue(x)
	case float32:
		return float64(x), true
	default:
		return nil, false
	}
}

func uintValue(u uint64) (any, bool) {
	if u > math.MaxInt64 {
		return nil, false
	}
	return int64(u), true
}

// widen converts an int64 cell to float64 when the column type is float64.
func widen(v any, t Type) any {
	if i, ok := v.(int64); ok && t == TypeFloat64 {
		return float64(i)
	}
	return v
}
