// Package timeutil provides timezone utilities for Lima timezone (UTC-5).
// All academic deadlines in the system are interpreted in Peruvian local time.
// It also implements the business-day arithmetic used to compute evaluation
// and correction deadlines. No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// LimaTZ is the Lima timezone (UTC-5, no DST).
// Peru has not observed daylight saving time since 1994, so this is
// constant year-round.
var LimaTZ = time.FixedZone("America/Lima", -5*60*60)

// Now returns the current time in Lima timezone.
func Now() time.Time {
	return time.Now().In(LimaTZ)
}

// ToLima converts a time to Lima timezone.
func ToLima(t time.Time) time.Time {
	return t.In(LimaTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a time in Lima timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, LimaTZ)
}

// StartOfDay returns the start of the day (00:00:00) in Lima timezone.
func StartOfDay(t time.Time) time.Time {
	lima := ToLima(t)
	return time.Date(lima.Year(), lima.Month(), lima.Day(), 0, 0, 0, 0, LimaTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in Lima timezone.
func EndOfDay(t time.Time) time.Time {
	lima := ToLima(t)
	return time.Date(lima.Year(), lima.Month(), lima.Day(), 23, 59, 59, 999999999, LimaTZ)
}

// IsWeekend checks if the given time is on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	lima := ToLima(t)
	weekday := lima.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// IsBusinessDay checks if the given time is on a business day (Mon-Fri).
// Institutional holidays are not modeled; only weekends are excluded.
func IsBusinessDay(t time.Time) bool {
	return !IsWeekend(t)
}

// NextBusinessDay returns the start of the next business day after t.
func NextBusinessDay(t time.Time) time.Time {
	next := ToLima(t).AddDate(0, 0, 1)
	for IsWeekend(next) {
		next = next.AddDate(0, 0, 1)
	}
	return StartOfDay(next)
}

// AddBusinessDays returns the deadline that falls n business days after start,
// skipping Saturdays and Sundays. The result is the end of the n-th business
// day in Lima time, so a deadline is not considered expired until the whole
// day has passed.
//
// n must be positive; n <= 0 returns the end of the start day. The function
// is pure: same inputs always produce the same output.
func AddBusinessDays(start time.Time, n int) time.Time {
	day := ToLima(start)
	if n <= 0 {
		return EndOfDay(day)
	}

	remaining := n
	for remaining > 0 {
		day = day.AddDate(0, 0, 1)
		if IsBusinessDay(day) {
			remaining--
		}
	}
	return EndOfDay(day)
}

// BusinessDaysBetween counts the business days strictly after from and up to
// and including until. Returns 0 when until is not after from.
func BusinessDaysBetween(from, until time.Time) int {
	start := StartOfDay(from)
	end := StartOfDay(until)
	if !end.After(start) {
		return 0
	}

	count := 0
	for day := start.AddDate(0, 0, 1); !day.After(end); day = day.AddDate(0, 0, 1) {
		if IsBusinessDay(day) {
			count++
		}
	}
	return count
}

// Vencido reports whether the given deadline has passed relative to now.
// A nil-safe wrapper is intentionally not provided: callers decide what the
// absence of a deadline means.
func Vencido(deadline, now time.Time) bool {
	return now.After(deadline)
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatPeruvianDate is the Peruvian date format (DD/MM/YYYY).
	FormatPeruvianDate = "02/01/2006"
	// FormatPeruvianDateTime is the Peruvian datetime format.
	FormatPeruvianDateTime = "02/01/2006 15:04"
)

// FormatLima formats a time in Lima timezone with the given layout.
func FormatLima(t time.Time, layout string) string {
	return ToLima(t).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in Lima timezone.
func FormatDateStr(t time.Time) string {
	return FormatLima(t, FormatDate)
}

// FormatPeruvian formats a time in Peruvian format (DD/MM/YYYY).
func FormatPeruvian(t time.Time) string {
	return FormatLima(t, FormatPeruvianDate)
}
