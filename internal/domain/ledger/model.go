package ledger

import (
	"errors"

	"gymdesk/internal/domain/month"
)

// Entry type constants.
const (
	TypeMonthlyFee = "monthly_fee"
	TypeOneTime    = "one_time"
)

// Payment status constants. A record can exist in the unpaid state
// purely to carry a memo for the month.
const (
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

// Domain errors
var (
	ErrEmptyMemberID  = errors.New("payment member ID cannot be empty")
	ErrInvalidType    = errors.New("payment type must be 'monthly_fee' or 'one_time'")
	ErrBadTargetDate  = errors.New("target date must be the first day of a month")
	ErrNegativeAmount = errors.New("payment amount cannot be negative")
	ErrNotFound       = errors.New("payment record not found")
)

// PaymentRecord is a ledger entry for a member's target month: either an
// actual payment (PaymentDate set) or a recorded-due placeholder
// carrying a memo.
type PaymentRecord struct {
	ID          string
	MemberID    string
	StudioID    string
	Amount      int
	Type        string
	TargetDate  string // YYYY-MM-01 first-of-month marker
	PaymentDate string // YYYY-MM-DD, "" when unpaid
	Memo        string
	Status      string
	CreatedAt   string // set by the store on first insert
}

// Validate checks if the PaymentRecord has valid data.
// PRE: PaymentRecord struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: TargetDate is always the first day of its month
func (r *PaymentRecord) Validate() error {
	if r.MemberID == "" {
		return ErrEmptyMemberID
	}
	if r.Type != TypeMonthlyFee && r.Type != TypeOneTime {
		return ErrInvalidType
	}
	if !month.ValidDate(r.TargetDate) || month.DayOfMonth(r.TargetDate) != 1 {
		return ErrBadTargetDate
	}
	if r.Amount < 0 {
		return ErrNegativeAmount
	}
	if r.PaymentDate != "" && !month.ValidDate(r.PaymentDate) {
		return month.ErrInvalidDate
	}
	return nil
}

// IsPaid returns true if an actual payment date is recorded.
// INVARIANT: PaymentRecord fields are not mutated
func (r *PaymentRecord) IsPaid() bool {
	return r.PaymentDate != ""
}

// SyncStatus derives the status label from the payment date.
// PRE: PaymentDate reflects the desired state
// POST: Status is "paid" iff PaymentDate is set
func (r *PaymentRecord) SyncStatus() {
	if r.IsPaid() {
		r.Status = StatusPaid
	} else {
		r.Status = StatusUnpaid
	}
}

// IsEmpty reports whether the record carries neither a payment date nor
// a memo. An empty record is deleted rather than stored as a
// placeholder.
func (r *PaymentRecord) IsEmpty() bool {
	return r.PaymentDate == "" && r.Memo == ""
}
