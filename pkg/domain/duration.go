package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration keeps a delay or timeout in the form it was written:
// "HH:MM:SS" (or a template), a structured mapping of units, or a number of seconds.
type Duration struct {
	Text    string
	Parts   map[string]any
	Seconds *float64
}

// DurationFromSeconds builds a numeric duration.
func DurationFromSeconds(s float64) Duration {
	return Duration{Seconds: &s}
}

// DurationFromText builds a textual duration.
func DurationFromText(s string) Duration {
	return Duration{Text: s}
}

// IsZero reports whether no form is set.
func (d Duration) IsZero() bool {
	return d.Text == "" && d.Parts == nil && d.Seconds == nil
}

// Value returns the duration in its original form for serialisation.
func (d Duration) Value() any {
	switch {
	case d.Seconds != nil:
		s := *d.Seconds
		if s == float64(int64(s)) {
			return int(s)
		}
		return s
	case d.Parts != nil:
		return cloneMap(d.Parts)
	default:
		return d.Text
	}
}

// IsTemplate reports whether the textual form is a template expression.
func (d Duration) IsTemplate() bool {
	return strings.Contains(d.Text, "{{") || strings.Contains(d.Text, "{%")
}

var durationUnits = map[string]time.Duration{
	"days":         24 * time.Hour,
	"hours":        time.Hour,
	"minutes":      time.Minute,
	"seconds":      time.Second,
	"milliseconds": time.Millisecond,
}

// ToDuration converts the value into a time.Duration.
// Templates cannot be evaluated and report an error.
func (d Duration) ToDuration() (time.Duration, error) {
	switch {
	case d.Seconds != nil:
		return time.Duration(*d.Seconds * float64(time.Second)), nil
	case d.Parts != nil:
		var total time.Duration
		for k, v := range d.Parts {
			unit, ok := durationUnits[k]
			if !ok {
				return 0, fmt.Errorf("unknown duration unit %q", k)
			}
			f, err := toFloat(v)
			if err != nil {
				return 0, fmt.Errorf("duration %s: %w", k, err)
			}
			total += time.Duration(f * float64(unit))
		}
		return total, nil
	case d.IsTemplate():
		return 0, fmt.Errorf("template duration %q cannot be evaluated", d.Text)
	}
	return parseClock(d.Text)
}

// parseClock accepts "SS", "MM:SS" and "HH:MM:SS" with optional fractional seconds.
func parseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	fields := strings.Split(s, ":")
	if len(fields) > 3 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	units := []time.Duration{time.Second, time.Minute, time.Hour}
	var total time.Duration
	for i := range fields {
		f, err := strconv.ParseFloat(fields[len(fields)-1-i], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		total += time.Duration(f * float64(units[i]))
	}
	return total, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("not a number: %T", v)
}
