package types

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexFloat is a float64 that unmarshals leniently: JSON numbers and numeric
// strings parse normally, anything else coerces to zero. Rubrics authored
// through the dashboard form and oracle replies both occasionally carry
// numbers as strings.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler with coerce-to-zero semantics.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexFloat(v)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			*f = FlexFloat(v)
			return nil
		}
	}
	*f = 0
	return nil
}

// Ptr returns a pointer to the underlying float64, convenient when filling
// optional numeric fields.
func (f FlexFloat) Ptr() *float64 {
	v := float64(f)
	return &v
}

// FlexString is a string that also accepts JSON numbers and booleans,
// rendering them as text. Non-scalar values decode to the empty string
// rather than failing, so a malformed oracle reply never aborts decoding.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = FlexString(str)
		return nil
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		*s = FlexString(strconv.FormatFloat(v, 'f', -1, 64))
		return nil
	}
	if trimmed == "true" || trimmed == "false" {
		*s = FlexString(trimmed)
		return nil
	}
	*s = ""
	return nil
}
