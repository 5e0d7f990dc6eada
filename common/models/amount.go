package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is a numeric registration or transaction field.
// Input that does not parse as a finite number becomes 0 instead of an error.
type Amount float64

// ParseAmount converts free text into an Amount, coercing bad input to 0
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return Amount(v)
}

// Float64 returns the raw value
func (a Amount) Float64() float64 {
	return float64(a)
}

// NonNegative clamps negative values to 0
func (a Amount) NonNegative() float64 {
	if a < 0 {
		return 0
	}
	return float64(a)
}

// UnmarshalJSON accepts a JSON number, a numeric string, or null
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = 0
			return nil
		}
		*a = ParseAmount(s)
		return nil
	}

	*a = ParseAmount(string(data))
	return nil
}
