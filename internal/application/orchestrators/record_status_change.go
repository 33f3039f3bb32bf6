package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/audit"
	"gymdesk/internal/domain/interval"
	"gymdesk/internal/domain/month"

	"github.com/google/uuid"
)

// StatusChangeIntervalStore defines the interval store interface needed
// for open-ended status transitions.
type StatusChangeIntervalStore interface {
	FindOpenByMember(ctx context.Context, memberID string) (interval.Interval, error)
	ApplyCarveOut(ctx context.Context, plan interval.CarveOutPlan) error
}

// RecordStatusChangeInput carries input for the status transition
// recorder.
type RecordStatusChangeInput struct {
	MemberID      string
	EffectiveDate string // YYYY-MM-DD; first day of the new status
	NewStatus     string
	NewPlan       string
	NewFee        int
	StudioID      string // optional; inherited from the closed interval

	ActorID    string
	ActorEmail string
}

// RecordStatusChangeResult reports the interval opened by the change.
type RecordStatusChangeResult struct {
	IntervalID string
	ClosedID   string // "" when the member had no open interval
}

// RecordStatusChangeDeps holds dependencies for RecordStatusChange.
type RecordStatusChangeDeps struct {
	IntervalStore StatusChangeIntervalStore
	MemberStore   MemberCacheStore // optional: nil skips the cache sync
	AuditStore    AuditWriter      // optional
	Now           func() time.Time
	GenerateID    func() string
}

// ExecuteRecordStatusChange records an open-ended transition: the
// member's open interval is closed the day before the effective date and
// a new open interval starts with the new status/plan/fee. A member with
// no open interval simply gets a new one. Both mutations commit in one
// transaction.
//
// PRE: MemberID is non-empty, EffectiveDate is a valid date
// POST: At most one open interval remains for the member
func ExecuteRecordStatusChange(ctx context.Context, input RecordStatusChangeInput, deps RecordStatusChangeDeps) (RecordStatusChangeResult, error) {
	if input.MemberID == "" {
		return RecordStatusChangeResult{}, errors.New("member ID is required")
	}
	if !month.ValidDate(input.EffectiveDate) {
		return RecordStatusChangeResult{}, month.ErrInvalidDate
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}

	var open *interval.Interval
	current, err := deps.IntervalStore.FindOpenByMember(ctx, input.MemberID)
	switch {
	case err == nil:
		open = &current
	case errors.Is(err, interval.ErrNoOpenInterval):
		// First transition for this member; nothing to close.
	default:
		return RecordStatusChangeResult{}, err
	}

	repl := interval.Interval{
		MemberID:   input.MemberID,
		StudioID:   input.StudioID,
		Status:     input.NewStatus,
		Plan:       input.NewPlan,
		MonthlyFee: input.NewFee,
	}
	plan, err := interval.PlanStatusChange(open, input.EffectiveDate, repl, deps.GenerateID)
	if err != nil {
		return RecordStatusChangeResult{}, err
	}

	if err := deps.IntervalStore.ApplyCarveOut(ctx, plan); err != nil {
		return RecordStatusChangeResult{}, err
	}

	opened := plan.Inserts[len(plan.Inserts)-1]
	closedID := ""
	if open != nil {
		closedID = open.ID
	}

	slog.Info("member_event", "event", "status_changed",
		"member_id", input.MemberID, "effective_date", input.EffectiveDate,
		"status", opened.Status, "plan", opened.Plan, "fee", opened.MonthlyFee)

	// Sync the cached member row when the change is already in effect.
	today := deps.Now().Format(month.DateLayout)
	if deps.MemberStore != nil && input.EffectiveDate <= today {
		syncMemberCache(ctx, deps.MemberStore, opened)
	}

	recordAudit(ctx, deps.AuditStore, audit.Event{
		ID:           deps.GenerateID(),
		Timestamp:    deps.Now(),
		Category:     audit.CategoryMember,
		Action:       audit.ActionUpdate,
		ActorID:      input.ActorID,
		ActorEmail:   input.ActorEmail,
		ResourceID:   input.MemberID,
		ResourceType: "member",
		Description:  "status change to " + opened.Status + " effective " + input.EffectiveDate,
	})

	return RecordStatusChangeResult{IntervalID: opened.ID, ClosedID: closedID}, nil
}
