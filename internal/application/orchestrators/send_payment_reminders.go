package orchestrators

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gymdesk/internal/application/projections"
	"gymdesk/internal/domain/month"
	"gymdesk/internal/domain/outbox"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
)

// ReminderOutboxStore defines the outbox store interface needed for
// enqueuing reminder emails.
type ReminderOutboxStore interface {
	Save(ctx context.Context, value outbox.Entry) error
}

// SendPaymentRemindersInput carries input for the reminder run.
type SendPaymentRemindersInput struct {
	StudioID    string // "" = all studios
	TargetMonth string // YYYY-MM
	Subject     string // optional; defaults to a subject naming the month
	BodyMD      string // Markdown template; {{name}}, {{month}}, {{amount}} are substituted
}

// SendPaymentRemindersResult reports the outcome of a reminder run.
type SendPaymentRemindersResult struct {
	UnpaidCount int // members projected unpaid
	Enqueued    int // reminder emails enqueued (members with an address)
	Skipped     int // unpaid members without an email address
}

// SendPaymentRemindersDeps holds dependencies for the reminder run.
type SendPaymentRemindersDeps struct {
	LedgerStore   projections.LedgerStore
	IntervalStore projections.IntervalStore
	MemberStore   projections.MemberStore
	OutboxStore   ReminderOutboxStore
	Now           func() time.Time
	GenerateID    func() string
}

// defaultReminderBody is the Markdown template used when the caller
// supplies none.
const defaultReminderBody = `{{name}} 様

## {{month}} 月会費のお支払いについて

{{month}} の月会費 **¥{{amount}}** のお支払いが確認できておりません。
お手続きをお願いいたします。

すでにお支払い済みの場合は、このメールは破棄してください。
`

// ExecuteSendPaymentReminders projects the unpaid set for a month,
// renders a Markdown reminder into HTML, and enqueues one outbox email
// entry per unpaid member who has an email address. Delivery happens
// asynchronously via the outbox worker.
//
// PRE: TargetMonth parses as YYYY-MM
// POST: One pending outbox entry per reminded member
func ExecuteSendPaymentReminders(ctx context.Context, input SendPaymentRemindersInput, deps SendPaymentRemindersDeps) (SendPaymentRemindersResult, error) {
	target, err := month.Parse(input.TargetMonth)
	if err != nil {
		return SendPaymentRemindersResult{}, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.GenerateID == nil {
		deps.GenerateID = func() string { return uuid.New().String() }
	}
	if input.Subject == "" {
		input.Subject = target.String() + " 月会費のお知らせ"
	}
	if input.BodyMD == "" {
		input.BodyMD = defaultReminderBody
	}

	projection, err := projections.QueryProjectMonth(ctx, projections.ProjectMonthQuery{
		StudioID:    input.StudioID,
		TargetMonth: input.TargetMonth,
	}, projections.ProjectMonthDeps{
		LedgerStore:   deps.LedgerStore,
		IntervalStore: deps.IntervalStore,
		MemberStore:   deps.MemberStore,
	})
	if err != nil {
		return SendPaymentRemindersResult{}, err
	}

	result := SendPaymentRemindersResult{UnpaidCount: projection.UnpaidCount}

	for _, entry := range projection.Expected {
		m, err := deps.MemberStore.GetByID(ctx, entry.MemberID)
		if err != nil || m.Email == "" {
			result.Skipped++
			continue
		}

		html, err := renderReminder(input.BodyMD, entry.MemberName, target.String(), entry.Amount)
		if err != nil {
			return result, err
		}

		payload, err := json.Marshal(EmailPayload{
			To:      m.Email,
			Subject: input.Subject,
			HTML:    html,
		})
		if err != nil {
			return result, err
		}

		box := outbox.Entry{
			ID:          deps.GenerateID(),
			ActionType:  outbox.ActionTypeEmail,
			Payload:     string(payload),
			Status:      outbox.StatusPending,
			MaxAttempts: 5,
			CreatedAt:   deps.Now(),
		}
		if err := box.Validate(); err != nil {
			return result, err
		}
		if err := deps.OutboxStore.Save(ctx, box); err != nil {
			return result, errors.Join(errors.New("failed to enqueue reminder"), err)
		}
		result.Enqueued++
	}

	slog.Info("billing_event", "event", "reminders_enqueued",
		"target_month", target.String(), "studio_id", input.StudioID,
		"unpaid", result.UnpaidCount, "enqueued", result.Enqueued, "skipped", result.Skipped)

	return result, nil
}

// renderReminder substitutes the template placeholders and converts the
// Markdown body to HTML.
func renderReminder(bodyMD, name, targetMonth string, amount int) (string, error) {
	md := bodyMD
	md = strings.ReplaceAll(md, "{{name}}", name)
	md = strings.ReplaceAll(md, "{{month}}", targetMonth)
	md = strings.ReplaceAll(md, "{{amount}}", fmt.Sprintf("%d", amount))

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render reminder body: %w", err)
	}
	return buf.String(), nil
}
