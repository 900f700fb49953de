package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for appointment timestamps. Values without an offset are
// read in the service's location; fractional seconds are always accepted.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp parses an ISO-8601 date-time. Precision beyond microseconds
// is dropped to match what Postgres stores.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.Truncate(time.Microsecond), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.Truncate(time.Microsecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date-time %q", raw)
}
