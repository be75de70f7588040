package shared

import (
	"strings"
	"time"
)

// ParseDate reads a YYYY-MM-DD value, falling back to RFC3339 for clients
// that send full timestamps. An absent value is a zero time, not an error.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}
