package domain

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the calendar date format used throughout the system.
	DateLayout = "2006-01-02"
	// MonthLayout identifies a calendar month.
	MonthLayout = "2006-01"
	// YearLayout identifies a calendar year.
	YearLayout = "2006"
)

// ParseDate parses a YYYY-MM-DD date. The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, s)
	}
	return t, nil
}

// ValidateDate checks the YYYY-MM-DD format.
func ValidateDate(s string) error {
	_, err := ParseDate(s)
	return err
}

// FormatDate renders t as YYYY-MM-DD in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddDays shifts a YYYY-MM-DD date by n calendar days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, n)), nil
}

// IsWeekend reports whether the date falls on a Saturday or Sunday.
func IsWeekend(date string) bool {
	t, err := ParseDate(date)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// MonthBounds returns the first and last date of a YYYY-MM month.
func MonthBounds(yearMonth string) (string, string, error) {
	t, err := time.Parse(MonthLayout, yearMonth)
	if err != nil {
		return "", "", fmt.Errorf("%w: month %q must be YYYY-MM", ErrInvalidInput, yearMonth)
	}
	return FormatDate(t), FormatDate(t.AddDate(0, 1, -1)), nil
}

// YearBounds returns the first and last date of a YYYY year.
func YearBounds(year string) (string, string, error) {
	t, err := time.Parse(YearLayout, year)
	if err != nil || len(year) != 4 {
		return "", "", fmt.Errorf("%w: year %q must be YYYY", ErrInvalidInput, year)
	}
	return FormatDate(t), FormatDate(t.AddDate(1, 0, -1)), nil
}
