// Package jsontime provides time values that serialize as Unix
// milliseconds in JSON, YAML and MessagePack, the encodings used by
// timeline archives and CLI output.
package jsontime

import (
	"encoding/json"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Milli is a time.Time that serializes to/from Unix milliseconds.
// Decoded values are in UTC.
type Milli time.Time

// NowEpochMilli returns the current time as Milli.
func NowEpochMilli() Milli {
	return Milli(time.Now())
}

// Time returns the underlying time.Time value.
func (ep Milli) Time() time.Time {
	return time.Time(ep)
}

// Before reports whether ep is before t.
func (ep Milli) Before(t Milli) bool {
	return time.Time(ep).Before(time.Time(t))
}

// After reports whether ep is after t.
func (ep Milli) After(t Milli) bool {
	return time.Time(ep).After(time.Time(t))
}

// Equal reports whether ep and t represent the same time instant.
func (ep Milli) Equal(t Milli) bool {
	return time.Time(ep).Equal(time.Time(t))
}

// String formats ep as RFC 3339 with millisecond precision.
func (ep Milli) String() string {
	return time.Time(ep).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// IsZero reports whether ep represents the zero time instant.
func (ep Milli) IsZero() bool {
	return time.Time(ep).IsZero()
}

func fromMillis(ms int64) Milli {
	return Milli(time.UnixMilli(ms).UTC())
}

// UnmarshalJSON implements json.Unmarshaler.
func (ep *Milli) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	*ep = fromMillis(ms)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (ep Milli) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(ep).UnixMilli())
}

// MarshalYAML implements the goccy/go-yaml InterfaceMarshaler.
func (ep Milli) MarshalYAML() (any, error) {
	return time.Time(ep).UnixMilli(), nil
}

// UnmarshalYAML implements the goccy/go-yaml InterfaceUnmarshaler.
func (ep *Milli) UnmarshalYAML(unmarshal func(any) error) error {
	var ms int64
	if err := unmarshal(&ms); err != nil {
		return err
	}
	*ep = fromMillis(ms)
	return nil
}

var (
	_ msgpack.CustomEncoder = Milli{}
	_ msgpack.CustomDecoder = (*Milli)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (ep Milli) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeInt(time.Time(ep).UnixMilli())
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (ep *Milli) DecodeMsgpack(dec *msgpack.Decoder) error {
	ms, err := dec.DecodeInt64()
	if err != nil {
		return err
	}
	*ep = fromMillis(ms)
	return nil
}
