package member

import (
	"errors"
	"strings"

	"gymdesk/internal/domain/month"
	"gymdesk/internal/domain/planname"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Membership status constants, mirroring interval statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusWithdrawn = "withdrawn"
)

// DefaultTransferDay is the bank-transfer day of month used when neither
// the member nor their interval history supplies one.
const DefaultTransferDay = 27

// Domain errors
var (
	ErrNotFound      = errors.New("member not found")
	ErrEmptyName     = errors.New("member name cannot be empty")
	ErrInvalidStatus = errors.New("status must be 'active', 'suspended', or 'withdrawn'")
)

// Member holds the admin-facing member row. Plan, Status and MonthlyFee
// are a read-optimization cache of the interval covering the current
// month; the interval store stays authoritative for every month.
type Member struct {
	ID                string
	StudioID          string
	Name              string
	Email             string
	Status            string
	Plan              string
	PlanCategory      planname.Category
	MonthlyFee        int
	BillingStartMonth string // YYYY-MM; months before this are never billed
	TransferDay       int    // preferred bank-transfer day of month, 0 = unset
	JoinedAt          string // YYYY-MM-DD
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (m *Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if len(m.Name) > MaxNameLength {
		return errors.New("member name cannot exceed 100 characters")
	}
	if m.Email != "" && !strings.Contains(m.Email, "@") {
		return errors.New("member email must be valid")
	}
	if m.Status != StatusActive && m.Status != StatusSuspended && m.Status != StatusWithdrawn {
		return ErrInvalidStatus
	}
	if m.BillingStartMonth != "" {
		if _, err := month.Parse(m.BillingStartMonth); err != nil {
			return errors.New("billing start month must be in YYYY-MM format")
		}
	}
	if m.TransferDay < 0 || m.TransferDay > 31 {
		return errors.New("transfer day must be between 0 and 31")
	}
	if !m.PlanCategory.Valid() {
		return errors.New("unknown plan category")
	}
	return nil
}

// IsActive returns true if the member is currently active.
// INVARIANT: Member fields are not mutated
func (m *Member) IsActive() bool {
	return m.Status == StatusActive
}

// SetPlan updates the cached plan label and re-derives its category.
// PRE: none
// POST: Plan and PlanCategory are consistent
func (m *Member) SetPlan(label string) {
	m.Plan = label
	m.PlanCategory = planname.Classify(label)
}

// BilledFrom reports whether the member is billable for the given month,
// honoring the configured billing start month.
// INVARIANT: Member fields are not mutated
func (m *Member) BilledFrom(target month.Month) bool {
	if m.BillingStartMonth == "" {
		return true
	}
	start, err := month.Parse(m.BillingStartMonth)
	if err != nil {
		return true
	}
	return !target.Before(start)
}
