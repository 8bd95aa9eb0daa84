package utils

import (
	"fmt"
	"time"
)

// ParseTimestamp parses the timestamp formats found in runbook documents:
// RFC3339, RFC3339 without zone, and bare dates.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time value %q", value)
}

// DaysSince returns the whole days elapsed from t until now, never negative.
func DaysSince(t time.Time, now time.Time) int {
	if now.Before(t) {
		return 0
	}
	return int(now.Sub(t).Hours() / 24)
}
