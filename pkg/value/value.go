// Package value implements KPAL's tagged-union attribute value and its JSON
// encoding. The C-ABI representation of the same union lives in pkg/plugin,
// which is the only package allowed to cross into cgo.
package value

import (
	"encoding/json"
	"fmt"
)

// Tag identifies which field of a Value is populated. It mirrors the
// uint32 tag field of the C-ABI kpal_value_t struct.
type Tag uint32

const (
	// Int is a signed 32-bit integer.
	Int Tag = iota
	// Uint is an unsigned 32-bit integer.
	Uint
	// Double is an IEEE-754 binary64 float.
	Double
	// String is a bounded, ASCII, NUL-free byte sequence.
	String
)

// String returns the wire spelling used by the JSON encoding and the REST
// API's "variant" field.
func (t Tag) String() string {
	switch t {
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Double:
		return "double"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// ParseTag converts the wire spelling back into a Tag.
func ParseTag(s string) (Tag, error) {
	switch s {
	case "int":
		return Int, nil
	case "uint":
		return Uint, nil
	case "double":
		return Double, nil
	case "string":
		return String, nil
	default:
		return 0, fmt.Errorf("value: unknown variant %q", s)
	}
}

// Value is a tagged union holding exactly one of Int, Uint, Double, or Str,
// selected by Tag. It is the Go-native counterpart of the C-ABI kpal_value_t.
type Value struct {
	Tag    Tag
	Int    int32
	Uint   uint32
	Double float64
	Str    string
}

// NewInt builds an Int-tagged Value.
func NewInt(v int32) Value { return Value{Tag: Int, Int: v} }

// NewUint builds a Uint-tagged Value.
func NewUint(v uint32) Value { return Value{Tag: Uint, Uint: v} }

// NewDouble builds a Double-tagged Value.
func NewDouble(v float64) Value { return Value{Tag: Double, Double: v} }

// NewString builds a String-tagged Value.
func NewString(v string) Value { return Value{Tag: String, Str: v} }

// SameVariant reports whether two values share a tag, the check the executor
// performs before ever entering the plugin on a write.
func (v Value) SameVariant(other Value) bool { return v.Tag == other.Tag }

// MarshalJSON encodes only the field selected by Tag, matching the REST
// API's `value: <variant-typed>` contract in spec section 6.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Tag {
	case Int:
		return json.Marshal(v.Int)
	case Uint:
		return json.Marshal(v.Uint)
	case Double:
		return json.Marshal(v.Double)
	case String:
		return json.Marshal(v.Str)
	default:
		return nil, fmt.Errorf("value: cannot marshal unknown tag %d", v.Tag)
	}
}

// DecodeJSON decodes raw JSON into a Value of the given tag. The tag must
// already be known (it travels alongside "value" as a sibling "variant"
// field on the wire), since the JSON number/string alone doesn't
// disambiguate int from uint from double.
func DecodeJSON(tag Tag, raw json.RawMessage) (Value, error) {
	switch tag {
	case Int:
		var i int32
		if err := json.Unmarshal(raw, &i); err != nil {
			return Value{}, err
		}
		return NewInt(i), nil
	case Uint:
		var u uint32
		if err := json.Unmarshal(raw, &u); err != nil {
			return Value{}, err
		}
		return NewUint(u), nil
	case Double:
		var d float64
		if err := json.Unmarshal(raw, &d); err != nil {
			return Value{}, err
		}
		return NewDouble(d), nil
	case String:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return NewString(s), nil
	default:
		return Value{}, fmt.Errorf("value: unknown tag %d", tag)
	}
}
