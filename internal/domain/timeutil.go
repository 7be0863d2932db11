package domain

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order by ParseTimestamp. Layouts without a
// zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// NormalizeUTC returns t in UTC. Every timestamp entering the system or
// compared against the clock goes through here.
func NormalizeUTC(t time.Time) time.Time {
	return t.UTC()
}

// NormalizeUTCPtr is NormalizeUTC for optional values.
func NormalizeUTCPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := NormalizeUTC(*t)
	return &u
}

// ParseTimestamp parses an ISO 8601 timestamp. Values without a zone offset
// are taken to be UTC rather than rejected. A lowercase z is read as Z.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "z") {
		s = strings.TrimSuffix(s, "z") + "Z"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NormalizeUTC(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not an ISO 8601 timestamp", ErrInvalidTimestamp, s)
}
