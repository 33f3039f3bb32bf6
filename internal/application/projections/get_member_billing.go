package projections

import (
	"context"
	"errors"

	domainLedger "gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/planname"
)

// MemberBillingLedgerStore defines the ledger store interface needed by
// the member billing timeline.
type MemberBillingLedgerStore interface {
	ListByMember(ctx context.Context, memberID string) ([]domainLedger.PaymentRecord, error)
}

// GetMemberBillingQuery carries input for the member billing timeline.
type GetMemberBillingQuery struct {
	MemberID string
}

// GetMemberBillingDeps holds dependencies for the member billing timeline.
type GetMemberBillingDeps struct {
	MemberStore   MemberStore
	IntervalStore IntervalStore
	LedgerStore   MemberBillingLedgerStore
}

// IntervalEntry is one segment of the member's plan history.
type IntervalEntry struct {
	IntervalID string
	StudioID   string
	Status     string
	Plan       string
	Category   string
	MonthlyFee int
	StartDate  string
	EndDate    string // "" = open
}

// LedgerEntry is one payment record in the member's history.
type LedgerEntry struct {
	RecordID    string
	TargetMonth string // YYYY-MM
	Type        string
	Amount      int
	PaymentDate string
	Memo        string
	Status      string
}

// MemberBillingResult joins a member's plan history with their ledger.
type MemberBillingResult struct {
	MemberID    string
	Name        string
	Status      string
	Plan        string
	MonthlyFee  int
	TransferDay int
	Intervals   []IntervalEntry
	Ledger      []LedgerEntry
}

// QueryGetMemberBilling returns the full billing view of one member:
// their interval history (oldest first) and their payment records
// (newest month first), for the admin profile page.
func QueryGetMemberBilling(ctx context.Context, query GetMemberBillingQuery, deps GetMemberBillingDeps) (MemberBillingResult, error) {
	if query.MemberID == "" {
		return MemberBillingResult{}, errors.New("member ID is required")
	}

	m, err := deps.MemberStore.GetByID(ctx, query.MemberID)
	if err != nil {
		return MemberBillingResult{}, err
	}

	result := MemberBillingResult{
		MemberID:    m.ID,
		Name:        m.Name,
		Status:      m.Status,
		Plan:        m.Plan,
		MonthlyFee:  m.MonthlyFee,
		TransferDay: m.TransferDay,
	}

	intervals, err := deps.IntervalStore.ListByMember(ctx, query.MemberID)
	if err != nil {
		return MemberBillingResult{}, err
	}
	for _, iv := range intervals {
		result.Intervals = append(result.Intervals, IntervalEntry{
			IntervalID: iv.ID,
			StudioID:   iv.StudioID,
			Status:     iv.Status,
			Plan:       iv.Plan,
			Category:   string(planname.Classify(iv.Plan)),
			MonthlyFee: iv.MonthlyFee,
			StartDate:  iv.StartDate,
			EndDate:    iv.EndDate,
		})
	}

	records, err := deps.LedgerStore.ListByMember(ctx, query.MemberID)
	if err != nil {
		return MemberBillingResult{}, err
	}
	for _, rec := range records {
		result.Ledger = append(result.Ledger, LedgerEntry{
			RecordID:    rec.ID,
			TargetMonth: rec.TargetDate[:7],
			Type:        rec.Type,
			Amount:      rec.Amount,
			PaymentDate: rec.PaymentDate,
			Memo:        rec.Memo,
			Status:      rec.Status,
		})
	}

	return result, nil
}
