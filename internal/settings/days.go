package settings

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Days is an optional day count. Saved settings carry numbers, numeric
// strings or blanks; anything blank or non-numeric decodes as absent rather
// than failing the whole document.
type Days struct {
	N     int
	Valid bool
}

// DaysOf returns a present day count.
func DaysOf(n int) Days {
	if n < 0 {
		n = 0
	}
	return Days{N: n, Valid: true}
}

// Or returns the day count, or def when absent.
func (d Days) Or(def int) int {
	if !d.Valid {
		return def
	}
	return d.N
}

// Ptr returns nil for an absent count.
func (d Days) Ptr() *int {
	if !d.Valid {
		return nil
	}
	n := d.N
	return &n
}

// ParseDays interprets a loosely typed value as a day count.
func ParseDays(v any) Days {
	switch t := v.(type) {
	case nil:
		return Days{}
	case Days:
		return t
	case int:
		return DaysOf(t)
	case *int:
		if t == nil {
			return Days{}
		}
		return DaysOf(*t)
	case int64:
		return DaysOf(int(t))
	case float64:
		return daysFromFloat(t)
	case json.Number:
		return parseDaysString(t.String())
	case string:
		return parseDaysString(t)
	default:
		return Days{}
	}
}

func parseDaysString(s string) Days {
	s = strings.TrimSpace(s)
	if s == "" {
		return Days{}
	}
	if n, err := strconv.Atoi(s); err == nil {
		return DaysOf(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return daysFromFloat(f)
	}
	return Days{}
}

// daysFromFloat truncates f, capping it at MaxDays before the int conversion
// so huge values never wrap.
func daysFromFloat(f float64) Days {
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return Days{}
	case f > MaxDays:
		return DaysOf(MaxDays)
	case f < 0:
		return DaysOf(0)
	}
	return DaysOf(int(f))
}

// MarshalJSON writes absent counts as null.
func (d Days) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(d.N)), nil
}

// UnmarshalJSON accepts numbers, numeric strings, "" and null.
func (d *Days) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = parseDaysString(s)
		return nil
	}
	*d = parseDaysString(string(b))
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Days) MarshalYAML() (any, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.N, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Days) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		*d = Days{}
		return nil
	}
	*d = parseDaysString(node.Value)
	return nil
}
