// Package dates holds the calendar helpers used across rollday. Days are
// plain "YYYY-MM-DD" strings in the local calendar and months are "YYYY-MM";
// both sort lexicographically.
package dates

import (
	"fmt"
	"time"
)

const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Format renders t as YYYY-MM-DD in t's own location.
func Format(t time.Time) string {
	return t.Format(DayLayout)
}

// Parse is the inverse of Format for dates in the local calendar.
func Parse(day string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, day, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", day, err)
	}
	return t, nil
}

// Today returns the clock's current local date.
func Today(c Clock) string {
	return Format(c.Now().Local())
}

// AddDays moves day by n calendar days, rolling over months and years.
func AddDays(day string, n int) (string, error) {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", day, err)
	}
	return t.AddDate(0, 0, n).Format(DayLayout), nil
}

// MonthID returns the YYYY-MM month containing t.
func MonthID(t time.Time) string {
	return t.Format(MonthLayout)
}

// MonthOf returns the month prefix of a YYYY-MM-DD day.
func MonthOf(day string) string {
	if len(day) < len(MonthLayout) {
		return ""
	}
	return day[:len(MonthLayout)]
}

// AddMonths moves a month identifier by n months.
func AddMonths(month string, n int) (string, error) {
	t, err := parseMonth(month)
	if err != nil {
		return "", err
	}
	// Anchored on the 1st so AddDate never normalizes into a later month.
	return t.AddDate(0, n, 0).Format(MonthLayout), nil
}

// MonthRange returns the first and last local day of month.
func MonthRange(month string) (first, last time.Time, err error) {
	t, err := parseMonth(month)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	first = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.Local)
	last = time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.Local)
	return first, last, nil
}

// DaysInMonth returns 28, 29, 30 or 31.
func DaysInMonth(month string) (int, error) {
	_, last, err := MonthRange(month)
	if err != nil {
		return 0, err
	}
	return last.Day(), nil
}

func parseMonth(month string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, month)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse month %q: %w", month, err)
	}
	return t, nil
}
