// Package props defines the property values stored on graph nodes and edges.
//
// A Value is either a scalar (bool, int, float, string, time) or a
// homogeneous array of scalars of one kind. The set of kinds is closed so
// that equality can be decided without reflection:
//
//   - scalars are equal when they have the same kind and the same value;
//   - arrays are equal when they have the same element kind, the same
//     length and pairwise equal elements;
//   - a scalar never equals an array, and arrays of different element
//     kinds are never equal (even when both are empty).
package props

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the scalar type of a Value (or of an array's elements).
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "invalid"
	}
}

// ErrUnsupported is returned by Of when a Go value has no Value counterpart.
var ErrUnsupported = errors.New("props: unsupported value")

// Value is an immutable property value. The zero Value is invalid.
type Value struct {
	kind  Kind
	array bool

	b bool
	i int64
	f float64
	s string
	t time.Time

	elems []Value
}

// Bool returns a bool scalar.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Int returns an int scalar.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float returns a float scalar.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String returns a string scalar.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Time returns a time scalar.
func Time(v time.Time) Value { return Value{kind: KindTime, t: v} }

// Array returns an array of the given element kind. Every element must be a
// scalar of that kind.
func Array(kind Kind, elems ...Value) (Value, error) {
	if kind == KindInvalid {
		return Value{}, fmt.Errorf("%w: array of invalid kind", ErrUnsupported)
	}
	cp := make([]Value, len(elems))
	for i, e := range elems {
		if e.array || e.kind != kind {
			return Value{}, fmt.Errorf("%w: array element %d is %s, want %s", ErrUnsupported, i, e.TypeName(), kind)
		}
		cp[i] = e
	}
	return Value{kind: kind, array: true, elems: cp}, nil
}

// Strings returns a string array.
func Strings(vs ...string) Value {
	elems := make([]Value, len(vs))
	for i, v := range vs {
		elems[i] = String(v)
	}
	return Value{kind: KindString, array: true, elems: elems}
}

// Ints returns an int array.
func Ints(vs ...int64) Value {
	elems := make([]Value, len(vs))
	for i, v := range vs {
		elems[i] = Int(v)
	}
	return Value{kind: KindInt, array: true, elems: elems}
}

// Floats returns a float array.
func Floats(vs ...float64) Value {
	elems := make([]Value, len(vs))
	for i, v := range vs {
		elems[i] = Float(v)
	}
	return Value{kind: KindFloat, array: true, elems: elems}
}

// Bools returns a bool array.
func Bools(vs ...bool) Value {
	elems := make([]Value, len(vs))
	for i, v := range vs {
		elems[i] = Bool(v)
	}
	return Value{kind: KindBool, array: true, elems: elems}
}

// Kind returns the scalar kind, or the element kind for arrays.
func (v Value) Kind() Kind { return v.kind }

// IsArray reports whether v is an array.
func (v Value) IsArray() bool { return v.array }

// IsValid reports whether v is not the zero Value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// IsZero reports whether v is the invalid zero Value. Encoders use it to
// honor omitempty and omitzero.
func (v Value) IsZero() bool { return v.kind == KindInvalid }

// Len returns the number of elements of an array, or 0 for scalars.
func (v Value) Len() int { return len(v.elems) }

// Index returns the i-th element of an array.
func (v Value) Index(i int) Value { return v.elems[i] }

// TypeName describes the type, e.g. "int" or "[]string".
func (v Value) TypeName() string {
	if v.array {
		return "[]" + v.kind.String()
	}
	return v.kind.String()
}

// AsBool returns the bool payload; ok is false for any other type.
func (v Value) AsBool() (b, ok bool) { return v.b, v.kind == KindBool && !v.array }

// AsInt returns the int payload; ok is false for any other type.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt && !v.array }

// AsFloat returns the float payload; ok is false for any other type.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat && !v.array }

// AsString returns the string payload; ok is false for any other type.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString && !v.array }

// AsTime returns the time payload; ok is false for any other type.
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime && !v.array }

// Equal reports whether v and w hold the same value.
func (v Value) Equal(w Value) bool {
	if v.kind != w.kind || v.array != w.array {
		return false
	}
	if v.array {
		if len(v.elems) != len(w.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(w.elems[i]) {
				return false
			}
		}
		return true
	}
	switch v.kind {
	case KindBool:
		return v.b == w.b
	case KindInt:
		return v.i == w.i
	case KindFloat:
		// NaN equals NaN so that a value always equals itself.
		return v.f == w.f || (math.IsNaN(v.f) && math.IsNaN(w.f))
	case KindString:
		return v.s == w.s
	case KindTime:
		return v.t.Equal(w.t)
	}
	return true
}

// Interface returns the value as a native Go value: bool, int64, float64,
// string, time.Time, or a typed slice of one of those.
func (v Value) Interface() any {
	if v.array {
		switch v.kind {
		case KindBool:
			out := make([]bool, len(v.elems))
			for i, e := range v.elems {
				out[i] = e.b
			}
			return out
		case KindInt:
			out := make([]int64, len(v.elems))
			for i, e := range v.elems {
				out[i] = e.i
			}
			return out
		case KindFloat:
			out := make([]float64, len(v.elems))
			for i, e := range v.elems {
				out[i] = e.f
			}
			return out
		case KindString:
			out := make([]string, len(v.elems))
			for i, e := range v.elems {
				out[i] = e.s
			}
			return out
		case KindTime:
			out := make([]time.Time, len(v.elems))
			for i, e := range v.elems {
				out[i] = e.t
			}
			return out
		}
		return nil
	}
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindTime:
		return v.t
	}
	return nil
}

// String formats the value for display.
func (v Value) String() string {
	if v.array {
		parts := make([]string, len(v.elems))
		for i, e := range v.elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	}
	return "<invalid>"
}

// Of converts a native Go value into a Value. Supported inputs are bool,
// all integer types, float32/64, json.Number, string, time.Time, typed
// slices of those, and []any whose elements all convert to the same kind.
func Of(x any) (Value, error) {
	switch v := x.(type) {
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return uintValue(uint64(v))
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		return uintValue(v)
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: number %q", ErrUnsupported, v)
		}
		return Float(f), nil
	case string:
		return String(v), nil
	case time.Time:
		return Time(v), nil
	case []bool:
		return Bools(v...), nil
	case []int64:
		return Ints(v...), nil
	case []int:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return Ints(out...), nil
	case []float64:
		return Floats(v...), nil
	case []string:
		return Strings(v...), nil
	case []time.Time:
		elems := make([]Value, len(v))
		for i, t := range v {
			elems[i] = Time(t)
		}
		return Value{kind: KindTime, array: true, elems: elems}, nil
	case []any:
		return ofSlice(v)
	case nil:
		return Value{}, fmt.Errorf("%w: nil", ErrUnsupported)
	}
	return Value{}, fmt.Errorf("%w: %T", ErrUnsupported, x)
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%w: %d overflows int64", ErrUnsupported, u)
	}
	return Int(int64(u)), nil
}

// ofSlice converts a heterogeneous []any. Empty slices become empty string
// arrays; mixed int/float elements are widened to float.
func ofSlice(xs []any) (Value, error) {
	if len(xs) == 0 {
		return Strings(), nil
	}
	elems := make([]Value, len(xs))
	kind := KindInvalid
	widen := false
	for i, x := range xs {
		e, err := Of(x)
		if err != nil {
			return Value{}, err
		}
		if e.array {
			return Value{}, fmt.Errorf("%w: nested array", ErrUnsupported)
		}
		switch {
		case kind == KindInvalid:
			kind = e.kind
		case kind == e.kind:
		case isNumeric(kind) && isNumeric(e.kind):
			widen = true
		default:
			return Value{}, fmt.Errorf("%w: mixed array of %s and %s", ErrUnsupported, kind, e.kind)
		}
		elems[i] = e
	}
	if widen {
		for i, e := range elems {
			if e.kind == KindInt {
				elems[i] = Float(float64(e.i))
			}
		}
		kind = KindFloat
	}
	return Value{kind: kind, array: true, elems: elems}, nil
}

func isNumeric(k Kind) bool { return k == KindInt || k == KindFloat }

// Parse interprets a command-line literal. "true"/"false", integers, floats
// and RFC 3339 times keep their type, a value wrapped in [...] is parsed as
// a JSON array, and anything else is a string.
func Parse(s string) Value {
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var xs []any
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		if err := dec.Decode(&xs); err == nil {
			if v, err := ofSlice(xs); err == nil {
				return v
			}
		}
	}
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return Bool(b)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Time(t)
	}
	return String(s)
}
