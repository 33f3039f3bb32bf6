package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gymdesk/internal/domain/audit"
	"gymdesk/internal/domain/interval"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/month"
	"gymdesk/internal/domain/planname"

	"github.com/google/uuid"
)

// ReconcileIntervalStore defines the interval store interface needed for
// the month carve-out.
type ReconcileIntervalStore interface {
	FindOverlapping(ctx context.Context, memberID, rangeStart, rangeEnd string) ([]interval.Interval, error)
	ApplyCarveOut(ctx context.Context, plan interval.CarveOutPlan) error
}

// MemberCacheStore defines the member store interface needed for the
// cached current-plan sync.
type MemberCacheStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
	UpdateCurrentPlan(ctx context.Context, memberID, status, plan string, category string, monthlyFee int) error
}

// AuditWriter records audit events. A nil writer skips auditing.
type AuditWriter interface {
	Save(ctx context.Context, event audit.Event) error
}

// ReconcileMonthInput carries input for the month reconciler.
type ReconcileMonthInput struct {
	MemberID    string
	TargetMonth string // YYYY-MM
	NewStatus   string // defaults to active
	NewPlan     string
	NewFee      int
	StudioID    string // optional; inherited from history when empty

	// Optional ledger side-effect applied after the carve-out.
	PaymentDate   string
	PaymentMemo   string
	PaymentAmount int

	ActorID    string
	ActorEmail string
}

// ReconcileMonthResult reports what the carve-out changed.
type ReconcileMonthResult struct {
	IntervalID string // the interval now spanning the target month
	Updated    int
	Deleted    int
	Inserted   int
}

// ReconcileMonthDeps holds dependencies for ReconcileMonth.
type ReconcileMonthDeps struct {
	IntervalStore ReconcileIntervalStore
	MemberStore   MemberCacheStore
	LedgerStore   RecordPaymentLedgerStore // optional: nil skips the payment side-effect
	AuditStore    AuditWriter              // optional
	Now           func() time.Time
	GenerateID    func() string
}

// ExecuteReconcileMonth replaces a member's plan for exactly one month.
// Existing intervals touching the month are trimmed, split or removed so
// the month is covered by a single interval carrying the new
// status/plan/fee, and everything outside the month keeps its history.
// The whole mutation set is applied in one transaction.
//
// PRE: MemberID is non-empty, TargetMonth parses as YYYY-MM
// POST: Exactly one interval spans the target month; no intervals overlap
// INVARIANT: Running the same input twice leaves the same timeline
func ExecuteReconcileMonth(ctx context.Context, input ReconcileMonthInput, deps ReconcileMonthDeps) (ReconcileMonthResult, error) {
	if input.MemberID == "" {
		return ReconcileMonthResult{}, errors.New("member ID is required")
	}
	target, err := month.Parse(input.TargetMonth)
	if err != nil {
		return ReconcileMonthResult{}, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}

	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return ReconcileMonthResult{}, err
		}
		return ReconcileMonthResult{}, fmt.Errorf("member lookup: %w", err)
	}

	existing, err := deps.IntervalStore.FindOverlapping(ctx, input.MemberID, target.FirstDay(), target.LastDay())
	if err != nil {
		return ReconcileMonthResult{}, err
	}

	repl := interval.Interval{
		MemberID:   input.MemberID,
		StudioID:   input.StudioID,
		Status:     input.NewStatus,
		Plan:       input.NewPlan,
		MonthlyFee: input.NewFee,
	}
	plan, err := interval.PlanCarveOut(existing, target, repl, deps.GenerateID)
	if err != nil {
		return ReconcileMonthResult{}, err
	}

	// The month interval is always the last insert in the plan. With no
	// requested studio and none inherited from overlapping history, it
	// falls back to the member's current studio.
	if mi := &plan.Inserts[len(plan.Inserts)-1]; mi.StudioID == "" {
		mi.StudioID = m.StudioID
	}

	if err := deps.IntervalStore.ApplyCarveOut(ctx, plan); err != nil {
		return ReconcileMonthResult{}, err
	}

	monthInterval := plan.Inserts[len(plan.Inserts)-1]

	slog.Info("billing_event", "event", "month_reconciled",
		"member_id", input.MemberID, "target_month", target.String(),
		"status", monthInterval.Status, "plan", monthInterval.Plan, "fee", monthInterval.MonthlyFee,
		"updated", len(plan.Updates), "deleted", len(plan.Deletes), "inserted", len(plan.Inserts))

	// The member row caches the interval covering the current month; keep
	// it in step when the reconciled month is the current one. Best-effort:
	// the carve-out already committed.
	today := deps.Now().Format(month.DateLayout)
	if target.Contains(today) {
		syncMemberCache(ctx, deps.MemberStore, monthInterval)
	}

	if input.PaymentDate != "" || input.PaymentMemo != "" {
		if deps.LedgerStore == nil {
			return ReconcileMonthResult{}, errors.New("payment details given but no ledger store configured")
		}
		_, err := ExecuteRecordPayment(ctx, RecordPaymentInput{
			MemberID:    input.MemberID,
			TargetMonth: input.TargetMonth,
			Amount:      input.PaymentAmount,
			PaymentDate: input.PaymentDate,
			Memo:        input.PaymentMemo,
			StudioID:    monthInterval.StudioID,
			ActorID:     input.ActorID,
			ActorEmail:  input.ActorEmail,
		}, RecordPaymentDeps{
			LedgerStore: deps.LedgerStore,
			AuditStore:  deps.AuditStore,
			Now:         deps.Now,
			GenerateID:  deps.GenerateID,
		})
		if err != nil {
			return ReconcileMonthResult{}, err
		}
	}

	recordAudit(ctx, deps.AuditStore, audit.Event{
		ID:           deps.GenerateID(),
		Timestamp:    deps.Now(),
		Category:     audit.CategoryBilling,
		Action:       audit.ActionUpdate,
		ActorID:      input.ActorID,
		ActorEmail:   input.ActorEmail,
		ResourceID:   input.MemberID,
		ResourceType: "member",
		Description:  "reconciled " + target.String() + " to " + monthInterval.Status + " / " + monthInterval.Plan + " for " + m.Name,
	})

	return ReconcileMonthResult{
		IntervalID: monthInterval.ID,
		Updated:    len(plan.Updates),
		Deleted:    len(plan.Deletes),
		Inserted:   len(plan.Inserts),
	}, nil
}

// syncMemberCache pushes an interval's status/plan/fee into the member
// row's cached columns. Failures are logged, never propagated: the
// interval store stays authoritative and the next sync heals the cache.
func syncMemberCache(ctx context.Context, store MemberCacheStore, iv interval.Interval) {
	category := planname.Classify(iv.Plan)
	if err := store.UpdateCurrentPlan(ctx, iv.MemberID, iv.Status, iv.Plan, string(category), iv.MonthlyFee); err != nil {
		slog.Error("member_cache_sync_failed", "member_id", iv.MemberID, "error", err)
	}
}

// recordAudit saves an audit event when a writer is configured.
// Audit failures are logged, never propagated.
func recordAudit(ctx context.Context, store AuditWriter, event audit.Event) {
	if store == nil {
		return
	}
	if err := store.Save(ctx, event); err != nil {
		slog.Error("audit_write_failed", "category", string(event.Category), "error", err)
	}
}
