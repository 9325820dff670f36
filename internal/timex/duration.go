// Package timex holds time helpers shared by the configuration layers.
package timex

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Duration wraps time.Duration so it can be read from JSON files and
// environment variables. Accepted forms are Go duration strings ("90m",
// "2h"), a day suffix ("1d", "7d") and integer seconds ("3600").
type Duration struct {
	time.Duration
}

// ParseDuration parses s in any of the forms accepted by Duration.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return scale(s, n, 24*time.Hour)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return scale(s, n, time.Second)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// scale returns n units, failing instead of wrapping when the result does not
// fit in a time.Duration.
func scale(s string, n int64, unit time.Duration) (time.Duration, error) {
	limit := int64(math.MaxInt64 / unit)
	if n > limit || n < -limit {
		return 0, fmt.Errorf("invalid duration %q: out of range", s)
	}
	return time.Duration(n) * unit, nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// UnmarshalJSON accepts a string in any ParseDuration form or a bare
// integer number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		return d.UnmarshalText(b)
	case string:
		return d.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
