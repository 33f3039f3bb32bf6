package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/audit"
	"gymdesk/internal/domain/interval"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/month"

	"github.com/google/uuid"
)

// RegisterMemberStore defines the member store interface needed for
// registration.
type RegisterMemberStore interface {
	Save(ctx context.Context, value member.Member) error
}

// RegisterIntervalStore defines the interval store interface needed for
// the initial open interval.
type RegisterIntervalStore interface {
	Save(ctx context.Context, value interval.Interval) error
}

// RegisterMemberInput carries input for member registration.
type RegisterMemberInput struct {
	Name              string
	Email             string
	StudioID          string
	Plan              string
	MonthlyFee        int
	JoinDate          string // YYYY-MM-DD; defaults to today
	BillingStartMonth string // YYYY-MM, optional
	TransferDay       int    // optional

	ActorID    string
	ActorEmail string
}

// RegisterMemberResult carries the IDs created by registration.
type RegisterMemberResult struct {
	MemberID   string
	IntervalID string
}

// RegisterMemberDeps holds dependencies for RegisterMember.
type RegisterMemberDeps struct {
	MemberStore   RegisterMemberStore
	IntervalStore RegisterIntervalStore
	AuditStore    AuditWriter // optional
	Now           func() time.Time
	GenerateID    func() string
}

// ExecuteRegisterMember creates a member row together with the initial
// open membership interval starting at the join date, so interval
// history is authoritative from day one.
//
// PRE: Name is non-empty
// POST: Member and one open interval persisted with matching plan/fee
func ExecuteRegisterMember(ctx context.Context, input RegisterMemberInput, deps RegisterMemberDeps) (RegisterMemberResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}

	joinDate := input.JoinDate
	if joinDate == "" {
		joinDate = deps.Now().Format(month.DateLayout)
	}
	if !month.ValidDate(joinDate) {
		return RegisterMemberResult{}, month.ErrInvalidDate
	}

	m := member.Member{
		ID:                deps.GenerateID(),
		StudioID:          input.StudioID,
		Name:              input.Name,
		Email:             input.Email,
		Status:            member.StatusActive,
		MonthlyFee:        input.MonthlyFee,
		BillingStartMonth: input.BillingStartMonth,
		TransferDay:       input.TransferDay,
		JoinedAt:          joinDate,
	}
	m.SetPlan(input.Plan)
	if err := m.Validate(); err != nil {
		return RegisterMemberResult{}, err
	}

	iv := interval.Interval{
		ID:         deps.GenerateID(),
		MemberID:   m.ID,
		StudioID:   input.StudioID,
		Status:     interval.StatusActive,
		Plan:       input.Plan,
		MonthlyFee: input.MonthlyFee,
		StartDate:  joinDate,
	}
	if err := iv.Validate(); err != nil {
		return RegisterMemberResult{}, err
	}

	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return RegisterMemberResult{}, err
	}
	if err := deps.IntervalStore.Save(ctx, iv); err != nil {
		return RegisterMemberResult{}, errors.Join(errors.New("failed to create initial interval"), err)
	}

	slog.Info("member_event", "event", "member_registered",
		"member_id", m.ID, "name", m.Name, "studio_id", m.StudioID, "plan", m.Plan, "join_date", joinDate)

	recordAudit(ctx, deps.AuditStore, audit.Event{
		ID:           deps.GenerateID(),
		Timestamp:    deps.Now(),
		Category:     audit.CategoryMember,
		Action:       audit.ActionCreate,
		ActorID:      input.ActorID,
		ActorEmail:   input.ActorEmail,
		ResourceID:   m.ID,
		ResourceType: "member",
		Description:  "registered " + m.Name,
	})

	return RegisterMemberResult{MemberID: m.ID, IntervalID: iv.ID}, nil
}
