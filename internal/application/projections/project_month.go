package projections

import (
	"context"
	"log/slog"

	"gymdesk/internal/domain/interval"
	"gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/month"
	"gymdesk/internal/domain/planname"
)

// EstimateLookbackMonths bounds how far back the fee estimator searches
// the ledger when neither the interval nor the member carries a fee.
const EstimateLookbackMonths = 6

// ProjectMonthQuery carries input for the monthly billing projection.
type ProjectMonthQuery struct {
	StudioID    string // "" = all studios
	TargetMonth string // YYYY-MM
}

// ProjectMonthDeps holds dependencies for the monthly billing projection.
type ProjectMonthDeps struct {
	LedgerStore   LedgerStore
	IntervalStore IntervalStore
	MemberStore   MemberStore
}

// PaidEntry is one settled (or memo-carrying) ledger row for the month.
type PaidEntry struct {
	RecordID    string
	MemberID    string
	MemberName  string
	Amount      int
	Type        string
	PaymentDate string
	Memo        string
	Status      string
}

// ExpectedEntry is one member projected to owe the monthly fee.
type ExpectedEntry struct {
	MemberID    string
	MemberName  string
	StudioID    string
	Plan        string
	Amount      int
	Estimated   bool // amount came from the ledger lookback, not a stored fee
	TransferDay int
}

// ProjectMonthResult is the month's reconciliation view: who paid, who
// still owes, and the running totals.
type ProjectMonthResult struct {
	TargetMonth   string
	StudioID      string
	Paid          []PaidEntry
	Expected      []ExpectedEntry
	PaidTotal     int
	ExpectedTotal int
	UnpaidCount   int
}

// QueryProjectMonth projects the billing state of one month: ledger rows
// already recorded for the month, plus the members whose active interval
// says they should pay but no ledger row exists yet.
//
// The already-recorded member set is fetched across ALL studios so a
// member whose month was recorded at one studio is never billed again
// through another. Memo-only unpaid rows count as recorded.
func QueryProjectMonth(ctx context.Context, query ProjectMonthQuery, deps ProjectMonthDeps) (ProjectMonthResult, error) {
	target, err := month.Parse(query.TargetMonth)
	if err != nil {
		return ProjectMonthResult{}, err
	}
	targetDate := target.FirstDay()

	result := ProjectMonthResult{
		TargetMonth: target.String(),
		StudioID:    query.StudioID,
	}

	records, err := deps.LedgerStore.ListForMonth(ctx, query.StudioID, targetDate)
	if err != nil {
		return ProjectMonthResult{}, err
	}
	for _, rec := range records {
		entry := PaidEntry{
			RecordID:    rec.ID,
			MemberID:    rec.MemberID,
			Amount:      rec.Amount,
			Type:        rec.Type,
			PaymentDate: rec.PaymentDate,
			Memo:        rec.Memo,
			Status:      rec.Status,
		}
		if m, err := deps.MemberStore.GetByID(ctx, rec.MemberID); err == nil {
			entry.MemberName = m.Name
		}
		result.Paid = append(result.Paid, entry)
		if rec.IsPaid() {
			result.PaidTotal += rec.Amount
		}
	}

	recordedMemberIDs, err := deps.LedgerStore.ListMemberIDsForMonth(ctx, targetDate, ledger.TypeMonthlyFee)
	if err != nil {
		return ProjectMonthResult{}, err
	}
	alreadyRecorded := make(map[string]bool, len(recordedMemberIDs))
	for _, id := range recordedMemberIDs {
		alreadyRecorded[id] = true
	}

	intervals, err := deps.IntervalStore.FindActiveForStudio(ctx, query.StudioID, targetDate, target.LastDay())
	if err != nil {
		return ProjectMonthResult{}, err
	}

	// One candidate interval per member: the latest-starting one wins when
	// a mid-month change left several active segments in the month.
	latest := make(map[string]interval.Interval)
	var order []string
	for _, iv := range intervals {
		prev, seen := latest[iv.MemberID]
		if !seen {
			order = append(order, iv.MemberID)
		}
		if !seen || iv.StartDate > prev.StartDate {
			latest[iv.MemberID] = iv
		}
	}

	for _, memberID := range order {
		if alreadyRecorded[memberID] {
			continue
		}
		iv := latest[memberID]
		if !planname.Classify(iv.Plan).Recurring() {
			continue
		}

		m, err := deps.MemberStore.GetByID(ctx, memberID)
		if err != nil {
			// Orphaned interval; the member row is gone.
			slog.Warn("billing_event", "event", "projection_member_missing", "member_id", memberID)
			continue
		}
		if !m.BilledFrom(target) {
			continue
		}

		amount, estimated, err := estimateFee(ctx, deps.LedgerStore, iv, m, target)
		if err != nil {
			return ProjectMonthResult{}, err
		}
		if amount == 0 {
			continue
		}

		result.Expected = append(result.Expected, ExpectedEntry{
			MemberID:    memberID,
			MemberName:  m.Name,
			StudioID:    iv.StudioID,
			Plan:        iv.Plan,
			Amount:      amount,
			Estimated:   estimated,
			TransferDay: transferDay(m, iv),
		})
		result.ExpectedTotal += amount
	}
	result.UnpaidCount = len(result.Expected)

	return result, nil
}

// estimateFee resolves the amount a member owes for the month: the
// interval's fee, else the member's cached fee, else the most recent
// ledger amount within the lookback window. Zero means "cannot bill".
func estimateFee(ctx context.Context, store LedgerStore, iv interval.Interval, m member.Member, target month.Month) (int, bool, error) {
	if iv.MonthlyFee > 0 {
		return iv.MonthlyFee, false, nil
	}
	if m.MonthlyFee > 0 {
		return m.MonthlyFee, false, nil
	}

	recent, err := store.ListRecentByMember(ctx, m.ID, ledger.TypeMonthlyFee, target.FirstDay(), EstimateLookbackMonths)
	if err != nil {
		return 0, false, err
	}
	cutoff := target.AddMonths(-EstimateLookbackMonths).FirstDay()
	for _, rec := range recent {
		if rec.TargetDate < cutoff {
			break
		}
		if rec.Amount > 0 {
			slog.Info("billing_event", "event", "fee_estimated_from_ledger",
				"member_id", m.ID, "target_month", target.String(),
				"source_month", rec.TargetDate[:7], "amount", rec.Amount)
			return rec.Amount, true, nil
		}
	}
	return 0, false, nil
}

// transferDay picks the bank-transfer day for an expected entry: the
// member's configured day, else the day of month the interval started
// on, else the default.
func transferDay(m member.Member, iv interval.Interval) int {
	if m.TransferDay > 0 {
		return m.TransferDay
	}
	if day := month.DayOfMonth(iv.StartDate); day > 0 {
		return day
	}
	return member.DefaultTransferDay
}
