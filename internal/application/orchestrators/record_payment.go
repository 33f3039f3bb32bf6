package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/audit"
	"gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/month"

	"github.com/google/uuid"
)

// RecordPaymentLedgerStore defines the ledger store interface needed for
// payment recording.
type RecordPaymentLedgerStore interface {
	GetByMemberMonth(ctx context.Context, memberID, targetDate, recordType string) (ledger.PaymentRecord, error)
	Save(ctx context.Context, value ledger.PaymentRecord) error
	Delete(ctx context.Context, id string) error
}

// RecordPaymentInput carries input for the payment recorder.
type RecordPaymentInput struct {
	MemberID    string
	TargetMonth string // YYYY-MM
	Type        string // defaults to monthly_fee
	Amount      int
	PaymentDate string // YYYY-MM-DD, "" = not yet paid
	Memo        string
	StudioID    string

	ActorID    string
	ActorEmail string
}

// RecordPaymentResult reports what happened to the ledger row.
type RecordPaymentResult struct {
	RecordID string // "" when the row was deleted or never existed
	Deleted  bool
}

// RecordPaymentDeps holds dependencies for RecordPayment.
type RecordPaymentDeps struct {
	LedgerStore RecordPaymentLedgerStore
	AuditStore  AuditWriter // optional
	Now         func() time.Time
	GenerateID  func() string
}

// ExecuteRecordPayment upserts or deletes the single ledger row for a
// member's target month and type. A row exists while it has something to
// say (a payment date or a memo); clearing both removes it. Status is
// derived: paid iff a payment date is present.
//
// PRE: MemberID is non-empty, TargetMonth parses as YYYY-MM
// POST: At most one row per (member, month, type); status matches PaymentDate
// INVARIANT: Re-running the same input is a no-op
func ExecuteRecordPayment(ctx context.Context, input RecordPaymentInput, deps RecordPaymentDeps) (RecordPaymentResult, error) {
	if input.MemberID == "" {
		return RecordPaymentResult{}, errors.New("member ID is required")
	}
	target, err := month.Parse(input.TargetMonth)
	if err != nil {
		return RecordPaymentResult{}, err
	}
	if input.Type == "" {
		input.Type = ledger.TypeMonthlyFee
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}

	targetDate := target.FirstDay()
	existing, err := deps.LedgerStore.GetByMemberMonth(ctx, input.MemberID, targetDate, input.Type)
	found := err == nil
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return RecordPaymentResult{}, err
	}

	// Nothing to record: drop the row if one exists.
	if input.PaymentDate == "" && input.Memo == "" {
		if !found {
			return RecordPaymentResult{}, nil
		}
		if err := deps.LedgerStore.Delete(ctx, existing.ID); err != nil {
			return RecordPaymentResult{}, err
		}
		slog.Info("billing_event", "event", "payment_cleared",
			"member_id", input.MemberID, "target_month", target.String(), "type", input.Type)
		recordAudit(ctx, deps.AuditStore, audit.Event{
			ID:           deps.GenerateID(),
			Timestamp:    deps.Now(),
			Category:     audit.CategoryBilling,
			Action:       audit.ActionDelete,
			ActorID:      input.ActorID,
			ActorEmail:   input.ActorEmail,
			ResourceID:   existing.ID,
			ResourceType: "payment_record",
			Description:  "cleared " + input.Type + " record for " + target.String(),
		})
		return RecordPaymentResult{Deleted: true}, nil
	}

	rec := existing
	if !found {
		rec = ledger.PaymentRecord{
			ID:       deps.GenerateID(),
			MemberID: input.MemberID,
			Type:     input.Type,
		}
	}
	rec.TargetDate = targetDate
	rec.Amount = input.Amount
	rec.PaymentDate = input.PaymentDate
	rec.Memo = input.Memo
	if input.StudioID != "" {
		rec.StudioID = input.StudioID
	}
	rec.SyncStatus()

	if err := rec.Validate(); err != nil {
		return RecordPaymentResult{}, err
	}
	if err := deps.LedgerStore.Save(ctx, rec); err != nil {
		return RecordPaymentResult{}, err
	}

	slog.Info("billing_event", "event", "payment_recorded",
		"member_id", input.MemberID, "target_month", target.String(), "type", input.Type,
		"amount", rec.Amount, "status", rec.Status)

	action := audit.ActionUpdate
	if !found {
		action = audit.ActionCreate
	}
	recordAudit(ctx, deps.AuditStore, audit.Event{
		ID:           deps.GenerateID(),
		Timestamp:    deps.Now(),
		Category:     audit.CategoryBilling,
		Action:       action,
		ActorID:      input.ActorID,
		ActorEmail:   input.ActorEmail,
		ResourceID:   rec.ID,
		ResourceType: "payment_record",
		Description:  "recorded " + rec.Status + " " + input.Type + " for " + target.String(),
	})

	return RecordPaymentResult{RecordID: rec.ID}, nil
}
