package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the scalar type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a closed tagged scalar: null, string, int, float or bool.
// The zero value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

func Null() Value            { return Value{} }
func String(s string) Value  { return Value{kind: KindString, s: s} }
func Int(i int64) Value      { return Value{kind: KindInt, i: i} }
func Float(f float64) Value  { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) StringVal() (string, bool) { return v.s, v.kind == KindString }
func (v Value) IntVal() (int64, bool)     { return v.i, v.kind == KindInt }
func (v Value) FloatVal() (float64, bool) { return v.f, v.kind == KindFloat }
func (v Value) BoolVal() (bool, bool)     { return v.b, v.kind == KindBool }

// Display returns the textual form of the value, as used for entity mentions
// and string concatenation. Null displays as the empty string.
func (v Value) Display() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Float64 returns the numeric form of an int or float value.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// CoerceString converts the value to a string value. Null stays null.
func (v Value) CoerceString() (Value, error) {
	if v.kind == KindNull {
		return v, nil
	}
	if v.kind == KindString {
		return v, nil
	}
	return String(v.Display()), nil
}

// CoerceInt converts the value to an int value. Floats must be integral;
// numeric strings are parsed. Null stays null.
func (v Value) CoerceInt() (Value, error) {
	switch v.kind {
	case KindNull, KindInt:
		return v, nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) || v.f != math.Trunc(v.f) {
			return Value{}, fmt.Errorf("cannot coerce %s to int", v.Display())
		}
		return Int(int64(v.f)), nil
	case KindString:
		s := strings.TrimSpace(v.s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
			return Int(int64(f)), nil
		}
		return Value{}, fmt.Errorf("cannot coerce %q to int", v.s)
	default:
		return Value{}, fmt.Errorf("cannot coerce %s to int", v.kind)
	}
}

// CoerceFloat converts the value to a float value. Null stays null.
func (v Value) CoerceFloat() (Value, error) {
	switch v.kind {
	case KindNull, KindFloat:
		return v, nil
	case KindInt:
		return Float(float64(v.i)), nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return Value{}, fmt.Errorf("cannot coerce %q to float", v.s)
		}
		return Float(f), nil
	default:
		return Value{}, fmt.Errorf("cannot coerce %s to float", v.kind)
	}
}

// CoerceBool converts the value to a bool value. Null stays null.
func (v Value) CoerceBool() (Value, error) {
	switch v.kind {
	case KindNull, KindBool:
		return v, nil
	case KindString:
		b, err := strconv.ParseBool(strings.TrimSpace(v.s))
		if err != nil {
			return Value{}, fmt.Errorf("cannot coerce %q to bool", v.s)
		}
		return Bool(b), nil
	case KindInt:
		switch v.i {
		case 0:
			return Bool(false), nil
		case 1:
			return Bool(true), nil
		}
		return Value{}, fmt.Errorf("cannot coerce %d to bool", v.i)
	default:
		return Value{}, fmt.Errorf("cannot coerce %s to bool", v.kind)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*v = Null()
		return nil
	case s == "true":
		*v = Bool(true)
		return nil
	case s == "false":
		*v = Bool(false)
		return nil
	case len(s) > 0 && s[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = String(str)
		return nil
	default:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			*v = Int(i)
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid value %q", s)
		}
		*v = Float(f)
		return nil
	}
}
