package interval

import (
	"errors"

	"gymdesk/internal/domain/month"
)

// Membership status constants.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusWithdrawn = "withdrawn"
)

// Domain errors
var (
	ErrNotFound       = errors.New("interval not found")
	ErrNoOpenInterval = errors.New("member has no open interval")
	ErrEmptyMemberID  = errors.New("interval member ID cannot be empty")
	ErrEmptyStart     = errors.New("interval start date is required")
	ErrBadDateOrder   = errors.New("interval end date precedes start date")
	ErrInvalidStatus  = errors.New("status must be 'active', 'suspended', or 'withdrawn'")
)

// Interval is a date range during which a member held a given
// status/plan/fee at a given studio. An empty EndDate means the
// interval is open-ended and still in effect.
type Interval struct {
	ID         string
	MemberID   string
	StudioID   string
	Status     string
	Plan       string
	MonthlyFee int
	StartDate  string // YYYY-MM-DD, inclusive
	EndDate    string // YYYY-MM-DD inclusive, or "" for open-ended
}

// Validate checks if the Interval has valid data.
// PRE: Interval struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: StartDate <= EndDate when EndDate is set
func (iv *Interval) Validate() error {
	if iv.MemberID == "" {
		return ErrEmptyMemberID
	}
	if !month.ValidDate(iv.StartDate) {
		return ErrEmptyStart
	}
	if iv.EndDate != "" {
		if !month.ValidDate(iv.EndDate) {
			return month.ErrInvalidDate
		}
		if iv.EndDate < iv.StartDate {
			return ErrBadDateOrder
		}
	}
	if iv.Status != StatusActive && iv.Status != StatusSuspended && iv.Status != StatusWithdrawn {
		return ErrInvalidStatus
	}
	return nil
}

// IsOpen returns true if the interval has no end date.
// INVARIANT: Interval fields are not mutated
func (iv *Interval) IsOpen() bool {
	return iv.EndDate == ""
}

// Overlaps reports whether the interval touches the inclusive range
// [rangeStart, rangeEnd].
// INVARIANT: Interval fields are not mutated
func (iv *Interval) Overlaps(rangeStart, rangeEnd string) bool {
	if iv.StartDate > rangeEnd {
		return false
	}
	return iv.IsOpen() || iv.EndDate >= rangeStart
}

// Covers reports whether the given date falls inside the interval.
// INVARIANT: Interval fields are not mutated
func (iv *Interval) Covers(date string) bool {
	if date < iv.StartDate {
		return false
	}
	return iv.IsOpen() || date <= iv.EndDate
}
