package month

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used throughout the billing domain.
// Dates are stored and compared as plain YYYY-MM-DD strings (no time component).
const DateLayout = "2006-01-02"

// Layout is the year-month input format (e.g. "2025-06").
const Layout = "2006-01"

// Domain errors
var (
	ErrInvalidMonth = errors.New("month must be in YYYY-MM format")
	ErrInvalidDate  = errors.New("date must be in YYYY-MM-DD format")
)

// Month identifies a calendar month for billing purposes.
type Month struct {
	Year int
	Mon  time.Month
}

// Parse parses a "YYYY-MM" string into a Month.
// PRE: s is non-empty
// POST: Returns the month or ErrInvalidMonth
func Parse(s string) (Month, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: t.Year(), Mon: t.Month()}, nil
}

// Of returns the Month containing the given time.
func Of(t time.Time) Month {
	return Month{Year: t.Year(), Mon: t.Month()}
}

// String returns the "YYYY-MM" representation.
// INVARIANT: Month fields are not mutated
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Mon))
}

// FirstDay returns the first calendar day as YYYY-MM-DD.
// This is also the target-date marker used for recurring ledger entries.
func (m Month) FirstDay() string {
	return time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// LastDay returns the last calendar day as YYYY-MM-DD.
func (m Month) LastDay() string {
	return time.Date(m.Year, m.Mon+1, 0, 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// Contains reports whether a YYYY-MM-DD date falls inside this month.
// Lexicographic comparison is valid for zero-padded ISO dates.
// INVARIANT: Month fields are not mutated
func (m Month) Contains(date string) bool {
	return date >= m.FirstDay() && date <= m.LastDay()
}

// Before reports whether this month precedes other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Mon < other.Mon
}

// AddMonths returns the month n months after (or before, for negative n) this one.
func (m Month) AddMonths(n int) Month {
	t := time.Date(m.Year, m.Mon+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Mon: t.Month()}
}

// DayBefore returns the calendar day preceding the given YYYY-MM-DD date.
// PRE: date is a valid YYYY-MM-DD string
// POST: Returns date − 1 day, or an error for malformed input
func DayBefore(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.AddDate(0, 0, -1).Format(DateLayout), nil
}

// DayAfter returns the calendar day following the given YYYY-MM-DD date.
// PRE: date is a valid YYYY-MM-DD string
// POST: Returns date + 1 day, or an error for malformed input
func DayAfter(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.AddDate(0, 0, 1).Format(DateLayout), nil
}

// DayOfMonth returns the day-of-month component of a YYYY-MM-DD date,
// or 0 for malformed input.
func DayOfMonth(date string) int {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0
	}
	return t.Day()
}

// ValidDate reports whether date is a well-formed YYYY-MM-DD string.
func ValidDate(date string) bool {
	_, err := time.Parse(DateLayout, date)
	return err == nil
}
