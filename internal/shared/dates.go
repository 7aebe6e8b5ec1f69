package shared

import (
	"fmt"
	"time"

	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
)

// DayLayout is the wire format for calendar days.
const DayLayout = "2006-01-02"

// Calendar days are represented as time.Time at midnight UTC so they compare,
// hash and subtract without time zone drift.

// ParseDay parses YYYY-MM-DD into a calendar day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid day %q", httpx.ErrValidation, s)
	}
	return t, nil
}

// DayOf truncates an instant to the calendar day it falls on in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a calendar day.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// DaysInclusive counts the calendar days from start to end, both included.
// It returns 0 when end is before start.
func DaysInclusive(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// FormatDay renders a calendar day as YYYY-MM-DD.
func FormatDay(day time.Time) string {
	return day.Format(DayLayout)
}

// LoadLocation resolves an IANA zone name, falling back when empty.
func LoadLocation(name string, fallback *time.Location) (*time.Location, error) {
	if name == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time zone %q", httpx.ErrValidation, name)
	}
	return loc, nil
}
