// Package calendar contains the UTC calendar-day arithmetic used by the
// aggregation pipeline. A day is always represented by its UTC midnight.
package calendar

import (
	"fmt"
	"regexp"
	"time"
)

// DayLayout is the canonical YYYY-MM-DD representation of a calendar day.
const DayLayout = "2006-01-02"

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsValidDay reports whether s is a strict YYYY-MM-DD day that survives a
// parse/format round trip in UTC.
func IsValidDay(s string) bool {
	if !dayPattern.MatchString(s) {
		return false
	}

	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return false
	}

	return t.Format(DayLayout) == s
}

// ParseDay parses s into the UTC midnight of that day.
func ParseDay(s string) (time.Time, error) {
	if !IsValidDay(s) {
		return time.Time{}, fmt.Errorf("invalid calendar day %q, expected YYYY-MM-DD", s)
	}

	return time.ParseInLocation(DayLayout, s, time.UTC)
}

func FormatDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// StartOfDay truncates t to the UTC midnight of its calendar day.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// OffsetDays returns the UTC midnight delta calendar days away from day.
func OffsetDays(day time.Time, delta int) time.Time {
	return StartOfDay(day).AddDate(0, 0, delta)
}

// NextDayStart is the exclusive upper bound for instants that fall on day.
func NextDayStart(day time.Time) time.Time {
	return OffsetDays(day, 1)
}

// EnumerateDaysInclusive lists every calendar day from from to to, both
// included. The result is empty when from is after to.
func EnumerateDaysInclusive(from, to time.Time) []time.Time {
	start := StartOfDay(from)
	end := StartOfDay(to)
	if start.After(end) {
		return []time.Time{}
	}

	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	return days
}
