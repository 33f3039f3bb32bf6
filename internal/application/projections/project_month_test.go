package projections

import (
	"context"
	"errors"
	"testing"

	memberStore "gymdesk/internal/adapters/storage/member"
	"gymdesk/internal/domain/interval"
	"gymdesk/internal/domain/ledger"
	"gymdesk/internal/domain/member"
)

// mockMemberStore is a hand-rolled member store for projection tests.
type mockMemberStore struct {
	members map[string]member.Member
}

func (m *mockMemberStore) GetByID(_ context.Context, id string) (member.Member, error) {
	mem, ok := m.members[id]
	if !ok {
		return member.Member{}, errors.New("member not found")
	}
	return mem, nil
}

func (m *mockMemberStore) List(_ context.Context, _ memberStore.ListFilter) ([]member.Member, error) {
	var out []member.Member
	for _, mem := range m.members {
		out = append(out, mem)
	}
	return out, nil
}

// mockIntervalStore is a hand-rolled interval store for projection tests.
type mockIntervalStore struct {
	intervals []interval.Interval
}

func (m *mockIntervalStore) FindActiveForStudio(_ context.Context, studioID, monthStart, monthEnd string) ([]interval.Interval, error) {
	var out []interval.Interval
	for _, iv := range m.intervals {
		if iv.Status != interval.StatusActive {
			continue
		}
		if studioID != "" && iv.StudioID != studioID {
			continue
		}
		if iv.Overlaps(monthStart, monthEnd) {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (m *mockIntervalStore) ListByMember(_ context.Context, memberID string) ([]interval.Interval, error) {
	var out []interval.Interval
	for _, iv := range m.intervals {
		if iv.MemberID == memberID {
			out = append(out, iv)
		}
	}
	return out, nil
}

// mockLedgerStore is a hand-rolled ledger store for projection tests.
type mockLedgerStore struct {
	records []ledger.PaymentRecord
}

func (m *mockLedgerStore) ListForMonth(_ context.Context, studioID, targetDate string) ([]ledger.PaymentRecord, error) {
	var out []ledger.PaymentRecord
	for _, rec := range m.records {
		if rec.TargetDate != targetDate {
			continue
		}
		if studioID != "" && rec.StudioID != studioID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockLedgerStore) ListMemberIDsForMonth(_ context.Context, targetDate, recordType string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range m.records {
		if rec.TargetDate == targetDate && rec.Type == recordType && !seen[rec.MemberID] {
			seen[rec.MemberID] = true
			out = append(out, rec.MemberID)
		}
	}
	return out, nil
}

func (m *mockLedgerStore) ListRecentByMember(_ context.Context, memberID, recordType, beforeDate string, limit int) ([]ledger.PaymentRecord, error) {
	var out []ledger.PaymentRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		if rec.MemberID == memberID && rec.Type == recordType && rec.TargetDate < beforeDate {
			out = append(out, rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *mockLedgerStore) ListByMember(_ context.Context, memberID string) ([]ledger.PaymentRecord, error) {
	var out []ledger.PaymentRecord
	for _, rec := range m.records {
		if rec.MemberID == memberID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func projectJune(t *testing.T, studioID string, deps ProjectMonthDeps) ProjectMonthResult {
	t.Helper()
	result, err := QueryProjectMonth(context.Background(), ProjectMonthQuery{
		StudioID:    studioID,
		TargetMonth: "2025-06",
	}, deps)
	if err != nil {
		t.Fatalf("QueryProjectMonth failed: %v", err)
	}
	return result
}

func TestQueryProjectMonth_PaidAndExpected(t *testing.T) {
	deps := ProjectMonthDeps{
		MemberStore: &mockMemberStore{members: map[string]member.Member{
			"m1": {ID: "m1", Name: "山田太郎", Status: member.StatusActive},
			"m2": {ID: "m2", Name: "佐藤花子", Status: member.StatusActive},
		}},
		IntervalStore: &mockIntervalStore{intervals: []interval.Interval{
			{ID: "iv1", MemberID: "m1", StudioID: "s1", Status: interval.StatusActive, Plan: "月4回プラン", MonthlyFee: 13200, StartDate: "2025-01-01"},
			{ID: "iv2", MemberID: "m2", StudioID: "s1", Status: interval.StatusActive, Plan: "月8回プラン", MonthlyFee: 19800, StartDate: "2025-02-01"},
		}},
		LedgerStore: &mockLedgerStore{records: []ledger.PaymentRecord{
			{ID: "p1", MemberID: "m1", StudioID: "s1", Amount: 13200, Type: ledger.TypeMonthlyFee, TargetDate: "2025-06-01", PaymentDate: "2025-06-27", Status: ledger.StatusPaid},
		}},
	}

	result := projectJune(t, "s1", deps)

	if len(result.Paid) != 1 || result.Paid[0].MemberID != "m1" {
		t.Errorf("paid = %+v, want only m1's row", result.Paid)
	}
	if result.PaidTotal != 13200 {
		t.Errorf("paid total = %d, want 13200", result.PaidTotal)
	}
	if len(result.Expected) != 1 || result.Expected[0].MemberID != "m2" {
		t.Fatalf("expected = %+v, want only m2", result.Expected)
	}
	if result.Expected[0].Amount != 19800 || result.Expected[0].Estimated {
		t.Errorf("m2 entry = %+v, want stored fee 19800", result.Expected[0])
	}
	if result.UnpaidCount != 1 || result.ExpectedTotal != 19800 {
		t.Errorf("totals = %d unpaid / %d expected", result.UnpaidCount, result.ExpectedTotal)
	}
}

func TestQueryProjectMonth_CrossStudioPaymentNotDoubleBilled(t *testing.T) {
	// m1 trains at studio s1 but paid June through s2. Projecting s1 must
	// not list them as unpaid.
	deps := ProjectMonthDeps{
		MemberStore: &mockMemberStore{members: map[string]member.Member{
			"m1": {ID: "m1", Name: "山田太郎", Status: member.StatusActive},
		}},
		IntervalStore: &mockIntervalStore{intervals: []interval.Interval{
			{ID: "iv1", MemberID: "m1", StudioID: "s1", Status: interval.StatusActive, Plan: "月4回プラン", MonthlyFee: 13200, StartDate: "2025-01-01"},
		}},
		LedgerStore: &mockLedgerStore{records: []ledger.PaymentRecord{
			{ID: "p1", MemberID: "m1", StudioID: "s2", Amount: 13200, Type: ledger.TypeMonthlyFee, TargetDate: "2025-06-01", PaymentDate: "2025-06-10", Status: ledger.StatusPaid},
		}},
	}

	result := projectJune(t, "s1", deps)

	if len(result.Expected) != 0 {
		t.Errorf("expected = %+v, want empty: payment at another studio settles the month", result.Expected)
	}
	// The s2 row itself stays out of the s1 paid list.
	if len(result.Paid) != 0 {
		t.Errorf("paid = %+v, want empty for studio s1", result.Paid)
	}
}

func TestQueryProjectMonth_MemoOnlyRowAtOtherStudioNotReBilled(t *testing.T) {
	// m1's June row at s2 carries only a memo, no payment yet. The month
	// is still recorded, so projecting s1 must not bill it again.
	deps := ProjectMonthDeps{
		MemberStore: &mockMemberStore{members: map[string]member.Member{
			"m1": {ID: "m1", Name: "山田太郎", Status: member.StatusActive},
		}},
		IntervalStore: &mockIntervalStore{intervals: []interval.Interval{
			{ID: "iv1", MemberID: "m1", StudioID: "s1", Status: interval.StatusActive, Plan: "月4回プラン", MonthlyFee: 13200, StartDate: "2025-01-01"},
		}},
		LedgerStore: &mockLedgerStore{records: []ledger.PaymentRecord{
			{ID: "p1", MemberID: "m1", StudioID: "s2", Type: ledger.TypeMonthlyFee, TargetDate: "2025-06-01", Memo: "銀行振込待ち", Status: ledger.StatusUnpaid},
		}},
	}

	result := projectJune(t, "s1", deps)

	if len(result.Expected) != 0 || result.UnpaidCount != 0 {
		t.Errorf("expected = %+v (unpaid %d), want empty: the s2 row already covers June", result.Expected, result.UnpaidCount)
	}
}

func TestQueryProjectMonth_LatestIntervalWins(t *testing.T) {
	// Mid-month plan change: two active intervals in June, the later start
	// decides the fee. One member, one expected row.
	deps := ProjectMonthDeps{
		MemberStore: &mockMemberStore{members: map[string]member.Member{
			"m1": {ID: "m1", Name: "山田太郎", Status: member.StatusActive},
		}},
		IntervalStore: &mockIntervalStore{intervals: []interval.Interval{
			{ID: "iv1", MemberID: "m1", StudioID: "s1", Status: interval.StatusActive, Plan: "月4回プラン", MonthlyFee: 13200, StartDate: "2025-01-01", EndDate: "2025-06-14"},
			{ID: "iv2", MemberID: "m1", StudioID: "s1", Status: interval.StatusActive, Plan: "月8回プラン", MonthlyFee: 19800, StartDate: "2025-06-15"},
		}},
		LedgerStore: &mockLedgerStore{},
	}

	result := projectJune(t, "s1", deps)

	if len(result.Expected) != 1 {
		t.Fatalf("expected = %+v, want exactly one row", result.Expected)
	}
	if result.Expected[0].Amount != 19800 || result.Expected[0].Plan != "月8回プラン" {
		t.Errorf("entry = %+v, want the later interval's plan and fee", result.Expected[0])
	}
}

func TestQueryProjectMonth_NonRecurringPlansExcluded(t *testing.T) {
	deps := ProjectMonthDeps{
		MemberStore: &mockMemberStore{members: map[string]member.Member{
			"m1": {ID: "m1", Name: "山田太郎", Status: member.StatusActive},
			"m2": {ID: "m2", Name: "佐藤花子", Status: member.StatusActive},
			"m3": {ID: "m3", Name: "鈴木一郎", Status: member.StatusActive},
		}},
		IntervalStore: &mockIntervalStore{intervals: []interval.Interval{
			{ID: "iv1", MemberID: "m1", Status: interval.StatusActive, Plan: "都度払い", MonthlyFee: 3000, StartDate: "2025-06-01"},
			{ID: "iv2", MemberID: "m2", Status: interval.StatusActive, Plan: "体験レッスン", MonthlyFee: 1000, StartDate: "2025-06-01"},
			{ID: "iv3", MemberID: "m3", Status: interval.StatusActive, Plan: "回数券10回", MonthlyFee: 30000, StartDate: "2025-06-01"},
		}},
		LedgerStore: &mockLedgerStore{},
	}

	result := projectJune(t, "", deps)

	if len(result.Expected) != 0 {
		t.Errorf("expected = %+v, want empty: one-off, trial and session-pack plans never owe a recurring fee", result.Expected)
	}
}

func TestQueryProjectMonth_BillingStartMonthGate(t *testing.T) {
	deps := ProjectMonthDeps{
		MemberStore: &mockMemberStore{members: map[string]member.Member{
			"m1": {ID: "m1", Name: "山田太郎", Status: member.StatusActive, BillingStartMonth: "2025-07"},
			"m2": {ID: "m2", Name: "佐藤花子", Status: member.StatusActive, BillingStartMonth: "2025-06"},
		}},
		IntervalStore: &mockIntervalStore{intervals: []interval.Interval{
			{ID: "iv1", MemberID: "m1", Status: interval.StatusActive, Plan: "月4回プラン", MonthlyFee: 13200, StartDate: "2025-05-01"},
			{ID: "iv2", MemberID: "m2", Status: interval.StatusActive, Plan: "月4回プラン", MonthlyFee: 13200, StartDate: "2025-05-01"},
		}},
		LedgerStore: &mockLedgerStore{},
	}

	result := projectJune(t, "", deps)

	if len(result.Expected) != 1 || result.Expected[0].MemberID != "m2" {
		t.Errorf("expected = %+v, want only m2: billing starts July for m1", result.Expected)
	}
}

func TestQueryProjectMonth_EstimateFromLedgerLookback(t *testing.T) {
	deps := ProjectMonthDeps{
		MemberStore: &mockMemberStore{members: map[string]member.Member{
			"m1": {ID: "m1", Name: "山田太郎", Status: member.StatusActive},
		}},
		IntervalStore: &mockIntervalStore{intervals: []interval.Interval{
			{ID: "iv1", MemberID: "m1", Status: interval.StatusActive, Plan: "月4回プラン", StartDate: "2025-01-01"},
		}},
		LedgerStore: &mockLedgerStore{records: []ledger.PaymentRecord{
			{ID: "p1", MemberID: "m1", Amount: 13200, Type: ledger.TypeMonthlyFee, TargetDate: "2025-03-01", PaymentDate: "2025-03-27", Status: ledger.StatusPaid},
		}},
	}

	result := projectJune(t, "", deps)

	if len(result.Expected) != 1 {
		t.Fatalf("expected = %+v, want one row", result.Expected)
	}
	entry := result.Expected[0]
	if entry.Amount != 13200 || !entry.Estimated {
		t.Errorf("entry = %+v, want estimated 13200 from the March ledger row", entry)
	}
}

func TestQueryProjectMonth_StaleLedgerHistoryExcluded(t *testing.T) {
	// The only known amount is more than 6 months old; the member cannot
	// be billed and drops out of the totals.
	deps := ProjectMonthDeps{
		MemberStore: &mockMemberStore{members: map[string]member.Member{
			"m1": {ID: "m1", Name: "山田太郎", Status: member.StatusActive},
		}},
		IntervalStore: &mockIntervalStore{intervals: []interval.Interval{
			{ID: "iv1", MemberID: "m1", Status: interval.StatusActive, Plan: "月4回プラン", StartDate: "2024-01-01"},
		}},
		LedgerStore: &mockLedgerStore{records: []ledger.PaymentRecord{
			{ID: "p1", MemberID: "m1", Amount: 13200, Type: ledger.TypeMonthlyFee, TargetDate: "2024-10-01", PaymentDate: "2024-10-27", Status: ledger.StatusPaid},
		}},
	}

	result := projectJune(t, "", deps)

	if len(result.Expected) != 0 || result.ExpectedTotal != 0 {
		t.Errorf("expected = %+v, want empty: no usable fee within the lookback", result.Expected)
	}
}

func TestQueryProjectMonth_TransferDayPriority(t *testing.T) {
	deps := ProjectMonthDeps{
		MemberStore: &mockMemberStore{members: map[string]member.Member{
			"m1": {ID: "m1", Name: "山田太郎", Status: member.StatusActive, TransferDay: 10},
			"m2": {ID: "m2", Name: "佐藤花子", Status: member.StatusActive},
		}},
		IntervalStore: &mockIntervalStore{intervals: []interval.Interval{
			{ID: "iv1", MemberID: "m1", Status: interval.StatusActive, Plan: "月4回プラン", MonthlyFee: 13200, StartDate: "2025-01-15"},
			{ID: "iv2", MemberID: "m2", Status: interval.StatusActive, Plan: "月4回プラン", MonthlyFee: 13200, StartDate: "2025-01-20"},
		}},
		LedgerStore: &mockLedgerStore{},
	}

	result := projectJune(t, "", deps)

	days := make(map[string]int)
	for _, entry := range result.Expected {
		days[entry.MemberID] = entry.TransferDay
	}
	if days["m1"] != 10 {
		t.Errorf("m1 transfer day = %d, want configured 10", days["m1"])
	}
	if days["m2"] != 20 {
		t.Errorf("m2 transfer day = %d, want interval start day 20", days["m2"])
	}
}

func TestQueryProjectMonth_InvalidMonth(t *testing.T) {
	_, err := QueryProjectMonth(context.Background(), ProjectMonthQuery{TargetMonth: "06-2025"}, ProjectMonthDeps{})
	if err == nil {
		t.Error("malformed month accepted")
	}
}
