package changelog

import (
	"encoding/hex"
	"fmt"
	"time"
)

// Kind tags which field of a Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindInt
	KindFloat
	KindBool
	KindInstant
	KindBytes
)

// Value is a tagged union over the scalar types a Row column can hold.
// Its JSON form (value_json.go) is the natural JSON type for each kind,
// with no kind tag on the wire, so decoding infers the kind: a Float
// holding a whole number such as 1.0 is written as 1 and decodes as an
// Int, and text that parses as RFC3339 decodes as an Instant.
type Value struct {
	Kind    Kind      `json:"kind"`
	Text    string    `json:"text,omitempty"`
	Int     int64     `json:"int,omitempty"`
	Float   float64   `json:"float,omitempty"`
	Bool    bool      `json:"bool,omitempty"`
	Instant time.Time `json:"instant,omitempty"`
	Bytes   []byte    `json:"bytes,omitempty"`
}

func Null() Value               { return Value{Kind: KindNull} }
func TextValue(s string) Value  { return Value{Kind: KindText, Text: s} }
func IntValue(i int64) Value    { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func BoolValue(b bool) Value    { return Value{Kind: KindBool, Bool: b} }
func InstantValue(t time.Time) Value { return Value{Kind: KindInstant, Instant: t.UTC()} }
func BytesValue(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders a Value using the wire conventions: instants as
// RFC3339, byte arrays as a lowercase "\x"-prefixed hex string.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "<null>"
	case KindText:
		return v.Text
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInstant:
		return v.Instant.Format(time.RFC3339Nano)
	case KindBytes:
		return `\x` + hex.EncodeToString(v.Bytes)
	default:
		return ""
	}
}

// Equal compares two Values for the purposes of conflict detection:
// same kind, same underlying scalar. Instants compare with time.Equal
// so differing monotonic readings of the same wall-clock instant match.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindText:
		return v.Text == o.Text
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindBool:
		return v.Bool == o.Bool
	case KindInstant:
		return v.Instant.Equal(o.Instant)
	case KindBytes:
		return string(v.Bytes) == string(o.Bytes)
	default:
		return false
	}
}

// Row is an ordered column -> Value mapping for a single record.
// Go's encoding/json sorts map keys alphabetically when marshaling,
// which gives the stable key ordering the wire format requires at
// no extra cost.
type Row map[string]Value

// Clone returns a shallow copy of the row (Values are immutable once
// constructed, so a shallow copy is sufficient).
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
