package changelog

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MarshalJSON renders a Value as the "natural" JSON type for its kind:
// strings as JSON strings, numbers as JSON numbers, bools as
// JSON bools, null as JSON null, instants as RFC3339 strings, and byte
// arrays as a "\x"-prefixed lowercase hex string. This is the format
// persisted in the _sync_changes.data / old_data columns.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindText:
		return json.Marshal(v.Text)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInstant:
		return json.Marshal(v.Instant.UTC().Format(time.RFC3339Nano))
	case KindBytes:
		return json.Marshal(`\x` + hex.EncodeToString(v.Bytes))
	default:
		return nil, fmt.Errorf("changelog: unknown value kind %d", v.Kind)
	}
}

// UnmarshalJSON recovers a Value from its wire form. Byte arrays are
// recognized by the "\x" prefix; instants are recognized by successful
// RFC3339 parse; everything else stays a plain string. This means a
// text column whose content happens to parse as RFC3339 round-trips as
// an Instant rather than Text - an accepted ambiguity of a
// type-erased wire format, not a bug in either direction the data was
// written.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*v = Null()
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.HasPrefix(s, `\x`) {
			raw, err := hex.DecodeString(s[2:])
			if err != nil {
				return fmt.Errorf("changelog: invalid byte value %q: %w", s, err)
			}
			*v = BytesValue(raw)
			return nil
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			*v = InstantValue(t)
			return nil
		}
		*v = TextValue(s)
		return nil
	}
	if len(b) > 0 && (b[0] == 't' || b[0] == 'f') {
		var bo bool
		if err := json.Unmarshal(b, &bo); err != nil {
			return err
		}
		*v = BoolValue(bo)
		return nil
	}
	// Number: int if it round-trips without loss, float otherwise.
	var i int64
	if err := json.Unmarshal(b, &i); err == nil {
		if fmt.Sprintf("%d", i) == string(b) {
			*v = IntValue(i)
			return nil
		}
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("changelog: invalid value literal %q: %w", b, err)
	}
	*v = FloatValue(f)
	return nil
}

// encodeRow and decodeRow marshal/unmarshal a Row to the JSON text
// stored in the data / old_data columns.
func encodeRow(r Row) (string, error) {
	if r == nil {
		return "", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRow(s string) (Row, error) {
	if s == "" {
		return nil, nil
	}
	var r Row
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, err
	}
	return r, nil
}
