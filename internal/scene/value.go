package scene

import (
	"errors"
	"fmt"
	"math"
)

// ErrTypeMismatch is returned when a value does not fit an attribute's declared type.
var ErrTypeMismatch = errors.New("type mismatch")

// ValueType is the declared type of an attribute.
type ValueType int

const (
	TypeInvalid ValueType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeToken
	TypeStringArray
	TypeFloat3
)

var valueTypeNames = map[ValueType]string{
	TypeBool:        "bool",
	TypeInt:         "int",
	TypeFloat:       "float",
	TypeString:      "string",
	TypeToken:       "token",
	TypeStringArray: "string[]",
	TypeFloat3:      "float3",
}

func (t ValueType) String() string {
	if n, ok := valueTypeNames[t]; ok {
		return n
	}
	return "invalid"
}

// ParseValueType maps a type name ("bool", "string[]", ...) back to a ValueType.
func ParseValueType(s string) (ValueType, error) {
	for t, n := range valueTypeNames {
		if n == s {
			return t, nil
		}
	}
	return TypeInvalid, fmt.Errorf("unknown value type %q", s)
}

// Variability mirrors the scene format's varying/uniform flag.
type Variability int

const (
	Varying Variability = iota
	Uniform
)

func (v Variability) String() string {
	if v == Uniform {
		return "uniform"
	}
	return "varying"
}

// Coerce converts v to the canonical Go representation of t:
// bool, int64, float64, string, []string or [3]float64. Decoded JSON and
// HCL values (float64 for ints, []any for arrays) are accepted. Floats must
// be finite; the scene file formats have no spelling for NaN or Inf.
func Coerce(t ValueType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == float64(int64(n)) {
				return int64(n), nil
			}
		}
	case TypeFloat:
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case float32:
			f = float64(n)
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, v, t)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %v is not a finite %s", ErrTypeMismatch, f, t)
		}
		return f, nil
	case TypeString, TypeToken:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeStringArray:
		switch a := v.(type) {
		case []string:
			out := make([]string, len(a))
			copy(out, a)
			return out, nil
		case []any:
			out := make([]string, 0, len(a))
			for _, e := range a {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("%w: %T in %s", ErrTypeMismatch, e, t)
				}
				out = append(out, s)
			}
			return out, nil
		}
	case TypeFloat3:
		switch a := v.(type) {
		case [3]float64:
			for _, f := range a {
				if math.IsNaN(f) || math.IsInf(f, 0) {
					return nil, fmt.Errorf("%w: %v is not a finite %s", ErrTypeMismatch, a, t)
				}
			}
			return a, nil
		case []float64:
			if len(a) == 3 {
				return Coerce(t, [3]float64{a[0], a[1], a[2]})
			}
		case []any:
			if len(a) == 3 {
				var out [3]float64
				for i, e := range a {
					f, err := Coerce(TypeFloat, e)
					if err != nil {
						return nil, err
					}
					out[i] = f.(float64)
				}
				return out, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, v, t)
}

// cloneValue copies slice-backed values so stages never share storage.
func cloneValue(v any) any {
	if a, ok := v.([]string); ok {
		out := make([]string, len(a))
		copy(out, a)
		return out
	}
	return v
}
