package props

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// arrayFlag marks the kind byte of an encoded array.
const arrayFlag = 0x80

// EncodeMsgpack implements msgpack.CustomEncoder.
//
// A Value is encoded as a two-element array: the kind byte (with arrayFlag
// set for arrays) followed by the payload, or by an array of payloads.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	tag := uint8(v.kind)
	if v.array {
		tag |= arrayFlag
	}
	if err := enc.EncodeUint8(tag); err != nil {
		return err
	}
	if !v.array {
		return v.encodeScalar(enc)
	}
	if err := enc.EncodeArrayLen(len(v.elems)); err != nil {
		return err
	}
	for _, e := range v.elems {
		if err := e.encodeScalar(enc); err != nil {
			return err
		}
	}
	return nil
}

func (v Value) encodeScalar(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindInt:
		return enc.EncodeInt(v.i)
	case KindFloat:
		return enc.EncodeFloat64(v.f)
	case KindString:
		return enc.EncodeString(v.s)
	case KindTime:
		return enc.EncodeTime(v.t)
	}
	return fmt.Errorf("%w: encode invalid value", ErrUnsupported)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("props: malformed value: %d fields", n)
	}
	tag, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	kind := Kind(tag &^ arrayFlag)
	if tag&arrayFlag == 0 {
		s, err := decodeScalar(dec, kind)
		if err != nil {
			return err
		}
		*v = s
		return nil
	}
	count, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	elems := make([]Value, max(count, 0))
	for i := range elems {
		if elems[i], err = decodeScalar(dec, kind); err != nil {
			return err
		}
	}
	*v = Value{kind: kind, array: true, elems: elems}
	return nil
}

func decodeScalar(dec *msgpack.Decoder, kind Kind) (Value, error) {
	switch kind {
	case KindBool:
		b, err := dec.DecodeBool()
		return Bool(b), err
	case KindInt:
		i, err := dec.DecodeInt64()
		return Int(i), err
	case KindFloat:
		f, err := dec.DecodeFloat64()
		return Float(f), err
	case KindString:
		s, err := dec.DecodeString()
		return String(s), err
	case KindTime:
		t, err := dec.DecodeTime()
		return Time(t), err
	}
	return Value{}, fmt.Errorf("props: malformed value: unknown kind %d", kind)
}

// MarshalJSON encodes the native form of v. Times are encoded as RFC 3339
// strings, so they decode back as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindTime {
		if v.array {
			out := make([]string, len(v.elems))
			for i, e := range v.elems {
				out[i] = e.t.Format(time.RFC3339Nano)
			}
			return json.Marshal(out)
		}
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a JSON scalar or array (see Of).
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
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

// MarshalYAML implements the yaml Marshaler interfaces of both
// goccy/go-yaml and gopkg.in/yaml.v3.
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}
