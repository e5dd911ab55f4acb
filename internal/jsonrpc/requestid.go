package jsonrpc

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// RequestID represents a JSON-RPC correlation id, which may be either a
// string or a number. A nil *RequestID marks a notification.
type RequestID struct {
	value any
}

// NewRequestID creates a RequestID from a string or numeric value. Any other
// type yields an id with a nil value, which serializes as null.
func NewRequestID(value any) *RequestID {
	switch v := value.(type) {
	case string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return &RequestID{value: v}
	default:
		return &RequestID{value: nil}
	}
}

// String renders the id for diagnostics. Nil and null ids render empty.
func (id *RequestID) String() string {
	if id == nil || id.value == nil {
		return ""
	}
	switch v := id.value.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Value returns the underlying string or numeric value.
func (id *RequestID) Value() any {
	if id == nil {
		return nil
	}
	return id.value
}

// IsNil reports whether the id is absent or null.
func (id *RequestID) IsNil() bool {
	return id == nil || id.value == nil
}

// MarshalJSON implements json.Marshaler.
func (id *RequestID) MarshalJSON() ([]byte, error) {
	if id == nil || id.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler. Integral numbers are stored as
// int64 so they round-trip without a float exponent.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		if num == float64(int64(num)) {
			id.value = int64(num)
		} else {
			id.value = num
		}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		id.value = str
		return nil
	}

	if string(data) == "null" {
		id.value = nil
		return nil
	}

	return fmt.Errorf("JSON-RPC ID must be a string or number, got: %s", string(data))
}

// idScanPattern matches an "id" member in raw (possibly malformed) JSON text.
var idScanPattern = regexp.MustCompile(`"id"\s*:\s*("(?:[^"\\]|\\.)*"|-?[0-9]+(?:\.[0-9]+)?)`)

// ExtractID performs a best-effort raw scan for a correlation id inside a
// line that failed full JSON parsing. It lets an error envelope keep its
// correlation when only the payload around the id is malformed. Returns nil
// when no id can be recovered.
func ExtractID(raw []byte) *RequestID {
	m := idScanPattern.FindSubmatch(raw)
	if m == nil {
		return nil
	}
	var id RequestID
	if err := id.UnmarshalJSON(m[1]); err != nil {
		return nil
	}
	if id.value == nil {
		return nil
	}
	return &id
}
