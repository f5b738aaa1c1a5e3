package props

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Map is a property map. A nil Map is an empty map.
type Map map[string]Value

// Clone returns a shallow copy of m. Values are immutable, so a shallow
// copy is sufficient. Clone of a nil map returns an empty, non-nil Map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	maps.Copy(out, m)
	return out
}

// Merge returns a new map containing m overlaid with delta; keys present in
// both take the value from delta.
func (m Map) Merge(delta Map) Map {
	out := m.Clone()
	maps.Copy(out, delta)
	return out
}

// Keys returns the keys of m in ascending order.
func (m Map) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Equal reports whether m and o hold the same keys with equal values.
func (m Map) Equal(o Map) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		w, ok := o[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}

// Native converts m to a map of native Go values (see Value.Interface).
func (m Map) Native() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Interface()
	}
	return out
}

// String formats m as {k1: v1, k2: v2} with sorted keys.
func (m Map) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(m[k].String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// FromNative converts a map of native Go values. See Of for the accepted
// value types.
func FromNative(in map[string]any) (Map, error) {
	out := make(Map, len(in))
	for k, x := range in {
		v, err := Of(x)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// MustFromNative is like FromNative but panics on error. Intended for tests
// and literals.
func MustFromNative(in map[string]any) Map {
	m, err := FromNative(in)
	if err != nil {
		panic(err)
	}
	return m
}

// UnmarshalJSON decodes a JSON object. Integral numbers become ints, other
// numbers floats.
func (m *Map) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out, err := FromNative(raw)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// MarshalJSON encodes m as a JSON object of native values.
func (m Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Native())
}

// MarshalYAML implements the yaml Marshaler interfaces of both
// goccy/go-yaml and gopkg.in/yaml.v3.
func (m Map) MarshalYAML() (any, error) {
	return m.Native(), nil
}

// UnmarshalYAML implements the goccy/go-yaml InterfaceUnmarshaler. Times
// written by MarshalYAML come back as times only when the decoder
// recognizes them as timestamps; otherwise they stay strings.
func (m *Map) UnmarshalYAML(unmarshal func(any) error) error {
	var raw map[string]any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	out, err := FromNative(raw)
	if err != nil {
		return err
	}
	*m = out
	return nil
}
