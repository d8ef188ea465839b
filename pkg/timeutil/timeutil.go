// Package timeutil provides UTC calendar-day arithmetic for streak tracking.
// All day boundaries are computed in UTC so a learner's streak does not
// depend on server timezone configuration.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// StartOfDay returns the start of the UTC calendar day (00:00:00) containing t.
func StartOfDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the end of the UTC calendar day (23:59:59.999999999) containing t.
func EndOfDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 23, 59, 59, 999999999, time.UTC)
}

// IsSameDay reports whether a and b fall on the same UTC calendar day.
func IsSameDay(a, b time.Time) bool {
	ua, ub := a.UTC(), b.UTC()
	return ua.Year() == ub.Year() &&
		ua.Month() == ub.Month() &&
		ua.Day() == ub.Day()
}

// IsConsecutiveDay reports whether b falls on the UTC calendar day
// immediately after a's day.
func IsConsecutiveDay(a, b time.Time) bool {
	return DaysBetween(a, b) == 1
}

// DaysBetween returns the number of UTC calendar days from a's day to b's
// day. Negative when b's day precedes a's day.
func DaysBetween(a, b time.Time) int {
	start := StartOfDay(a)
	end := StartOfDay(b)
	return int(end.Sub(start).Hours() / 24)
}

// DaysSince returns the number of whole UTC calendar days elapsed since t.
func DaysSince(t time.Time) int {
	return DaysBetween(t, time.Now())
}

// NextDay returns the start of the UTC calendar day after t's day.
func NextDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}
