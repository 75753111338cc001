// Package prop defines the property model shared by the entity graph and the
// predicate evaluator. A Value is a small tagged variant (null, string, int,
// float, bool); a Map is the open extension map that vertices and edges carry
// for source-specific fields.
//
// Int and float values compare numerically with each other, so a query for
// cpu == 4 matches both 4 and 4.0 regardless of which decoder produced them.
package prop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// ErrUnsupported is returned when a Go value has no Value representation.
var ErrUnsupported = errors.New("prop: unsupported value type")

// Kind identifies the variant held by a Value.
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
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable property value. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	n    int64
	f    float64
	b    bool
}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an int Value.
func Int(n int64) Value { return Value{kind: KindInt, n: n} }

// Float returns a float Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a bool Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Of converts a decoded Go value into a Value. It accepts every integer and
// float width, json.Number, string, bool, nil and Value itself, which covers
// the output of encoding/json, both YAML decoders and msgpack.
func Of(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return ofUint(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return ofUint(x)
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: number %q", ErrUnsupported, x.String())
		}
		return Float(f), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

func ofUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%w: %d overflows int64", ErrUnsupported, u)
	}
	return Int(int64(u)), nil
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Any returns v as a plain Go value (nil, string, int64, float64 or bool).
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.n
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether v and o hold the same value. Ints and floats are
// compared numerically; all other kinds must match exactly.
func (v Value) Equal(o Value) bool {
	switch {
	case v.kind == o.kind:
		switch v.kind {
		case KindNull:
			return true
		case KindString:
			return v.s == o.s
		case KindInt:
			return v.n == o.n
		case KindFloat:
			return v.f == o.f
		case KindBool:
			return v.b == o.b
		}
		return false
	case v.kind == KindInt && o.kind == KindFloat:
		return float64(v.n) == o.f
	case v.kind == KindFloat && o.kind == KindInt:
		return v.f == float64(o.n)
	default:
		return false
	}
}

// String formats v for display. Strings are quoted.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.s)
	case KindInt:
		return strconv.FormatInt(v.n, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON implements json.Unmarshaler. Integral numbers decode as int.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out, err := Of(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// MarshalYAML implements the Marshaler interface of both YAML libraries.
func (v Value) MarshalYAML() (any, error) {
	return v.Any(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: yaml node at line %d is not a scalar", ErrUnsupported, node.Line)
	}
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	out, err := Of(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(v.Any())
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	raw, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	out, err := Of(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// Map is the open, heterogeneous property map of a vertex or edge.
type Map map[string]Value

// FromAny converts a decoded map into a Map.
func FromAny(m map[string]any) (Map, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(Map, len(m))
	for k, raw := range m {
		v, err := Of(raw)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Property returns the named value and whether it is present.
func (m Map) Property(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}

// Clone returns a shallow copy of m. Values are immutable, so the copy shares
// nothing mutable with m.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// Keys returns the property names in sorted order.
func (m Map) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Any returns m as a plain map, suitable for JSON encoding or jq input.
func (m Map) Any() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}
