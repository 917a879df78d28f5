package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date form used in prompts and CLI flags.
const DateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD, a naive YYYY-MM-DDTHH:MM:SS, or RFC 3339 and
// returns the instant in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
