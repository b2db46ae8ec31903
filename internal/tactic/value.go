package tactic

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// #region kind
// Kind discriminates the closed set of shapes a parameter value can take.
// Real usage is always one of a few symbolic states ("standard", "strict"),
// a numeric level, or a flag; an open dynamic type is deliberately avoided.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
)

// #endregion kind

// #region value
// Value is one parameter value: a symbolic string, a number, or a flag.
// The zero Value is the empty string.
type Value struct {
	kind Kind
	str  string
	num  float64
	flag bool
}

// StringValue wraps a symbolic string state.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps a numeric level.
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// BoolValue wraps a flag.
func BoolValue(b bool) Value { return Value{kind: KindBool, flag: b} }

// Kind reports the value's shape.
func (v Value) Kind() Kind { return v.kind }

// Equal reports whether two values have the same shape and content.
func (v Value) Equal(o Value) bool { return v == o }

// String renders the value for reasoning text and table output.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.flag)
	default:
		return v.str
	}
}

// #endregion value

// #region value-json
// MarshalJSON encodes the value as its natural JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.flag)
	default:
		return json.Marshal(v.str)
	}
}

// UnmarshalJSON decodes a JSON scalar into the matching value shape.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = StringValue(t)
	case float64:
		*v = NumberValue(t)
	case bool:
		*v = BoolValue(t)
	default:
		return fmt.Errorf("unsupported parameter value %s", string(data))
	}
	return nil
}

// #endregion value-json
