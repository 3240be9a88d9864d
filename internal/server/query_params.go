package server

import (
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

// parseDate accepts date-only or RFC3339 timestamps and normalizes both
// to a UTC midnight date.
func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, err
	}
	parsed = parsed.UTC()
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
}
