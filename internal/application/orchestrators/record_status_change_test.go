package orchestrators

import (
	"context"
	"errors"
	"testing"

	"gymdesk/internal/domain/interval"
	"gymdesk/internal/domain/member"
)

func TestExecuteRecordStatusChange_ClosesOpenInterval(t *testing.T) {
	intervalStore := &mockIntervalStore{intervals: []interval.Interval{
		{ID: "iv1", MemberID: "m1", StudioID: "s1", Status: interval.StatusActive, Plan: "月4回プラン", MonthlyFee: 13200, StartDate: "2025-01-01"},
	}}
	memberStore := &mockMemberStore{members: map[string]member.Member{
		"m1": {ID: "m1", Name: "山田太郎", Status: member.StatusActive},
	}}

	result, err := ExecuteRecordStatusChange(context.Background(), RecordStatusChangeInput{
		MemberID:      "m1",
		EffectiveDate: "2025-07-01",
		NewStatus:     interval.StatusWithdrawn,
	}, RecordStatusChangeDeps{
		IntervalStore: intervalStore,
		MemberStore:   memberStore,
		Now:           fixedNow("2025-07-02"),
		GenerateID:    sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("ExecuteRecordStatusChange failed: %v", err)
	}
	if result.ClosedID != "iv1" {
		t.Errorf("closed ID = %q, want iv1", result.ClosedID)
	}

	if len(intervalStore.intervals) != 2 {
		t.Fatalf("interval count = %d, want 2", len(intervalStore.intervals))
	}
	for _, iv := range intervalStore.intervals {
		switch iv.ID {
		case "iv1":
			if iv.EndDate != "2025-06-30" {
				t.Errorf("closed interval end = %q, want 2025-06-30", iv.EndDate)
			}
		case result.IntervalID:
			if iv.StartDate != "2025-07-01" || !iv.IsOpen() {
				t.Errorf("new interval = %+v, want open from 2025-07-01", iv)
			}
			if iv.Status != interval.StatusWithdrawn {
				t.Errorf("new interval status = %q, want withdrawn", iv.Status)
			}
			if iv.StudioID != "s1" {
				t.Errorf("new interval studio = %q, want inherited s1", iv.StudioID)
			}
		default:
			t.Errorf("unexpected interval %+v", iv)
		}
	}

	// Effective date has passed, so the cached member row follows.
	if len(memberStore.syncCalls) != 1 {
		t.Errorf("sync calls = %v, want one", memberStore.syncCalls)
	}
}

func TestExecuteRecordStatusChange_NoOpenInterval(t *testing.T) {
	intervalStore := &mockIntervalStore{}
	memberStore := &mockMemberStore{members: map[string]member.Member{
		"m1": {ID: "m1", Name: "山田太郎", Status: member.StatusActive},
	}}

	result, err := ExecuteRecordStatusChange(context.Background(), RecordStatusChangeInput{
		MemberID:      "m1",
		EffectiveDate: "2025-07-01",
		NewStatus:     interval.StatusActive,
		NewPlan:       "月8回プラン",
		NewFee:        19800,
	}, RecordStatusChangeDeps{
		IntervalStore: intervalStore,
		MemberStore:   memberStore,
		Now:           fixedNow("2025-06-01"),
		GenerateID:    sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("ExecuteRecordStatusChange failed: %v", err)
	}
	if result.ClosedID != "" {
		t.Errorf("closed ID = %q, want empty", result.ClosedID)
	}
	if len(intervalStore.intervals) != 1 {
		t.Fatalf("interval count = %d, want 1", len(intervalStore.intervals))
	}

	// Future-dated change leaves the cache alone.
	if len(memberStore.syncCalls) != 0 {
		t.Errorf("future change synced the cache: %v", memberStore.syncCalls)
	}
}

func TestExecuteRecordStatusChange_SameDayOpenIsReplaced(t *testing.T) {
	intervalStore := &mockIntervalStore{intervals: []interval.Interval{
		{ID: "iv1", MemberID: "m1", Status: interval.StatusActive, StartDate: "2025-07-01"},
	}}
	memberStore := &mockMemberStore{members: map[string]member.Member{
		"m1": {ID: "m1", Name: "山田太郎", Status: member.StatusActive},
	}}

	result, err := ExecuteRecordStatusChange(context.Background(), RecordStatusChangeInput{
		MemberID:      "m1",
		EffectiveDate: "2025-07-01",
		NewStatus:     interval.StatusSuspended,
	}, RecordStatusChangeDeps{
		IntervalStore: intervalStore,
		MemberStore:   memberStore,
		Now:           fixedNow("2025-07-01"),
		GenerateID:    sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("ExecuteRecordStatusChange failed: %v", err)
	}

	// The open interval starting the same day would be inverted by the
	// close, so it is swallowed rather than kept.
	if len(intervalStore.intervals) != 1 {
		t.Fatalf("interval count = %d, want 1", len(intervalStore.intervals))
	}
	if intervalStore.intervals[0].ID != result.IntervalID {
		t.Errorf("surviving interval = %+v, want the replacement", intervalStore.intervals[0])
	}
}

func TestExecuteRecordStatusChange_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("db locked")
	intervalStore := &mockIntervalStore{applyErr: boom}
	memberStore := &mockMemberStore{members: map[string]member.Member{}}

	_, err := ExecuteRecordStatusChange(context.Background(), RecordStatusChangeInput{
		MemberID:      "m1",
		EffectiveDate: "2025-07-01",
		NewStatus:     interval.StatusActive,
	}, RecordStatusChangeDeps{
		IntervalStore: intervalStore,
		MemberStore:   memberStore,
		GenerateID:    sequentialIDs(),
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want the store error surfaced to the caller", err)
	}
}

func TestExecuteRecordStatusChange_Validation(t *testing.T) {
	deps := RecordStatusChangeDeps{
		IntervalStore: &mockIntervalStore{},
		MemberStore:   &mockMemberStore{members: map[string]member.Member{}},
	}

	if _, err := ExecuteRecordStatusChange(context.Background(), RecordStatusChangeInput{EffectiveDate: "2025-07-01"}, deps); err == nil {
		t.Error("empty member ID accepted")
	}
	if _, err := ExecuteRecordStatusChange(context.Background(), RecordStatusChangeInput{MemberID: "m1", EffectiveDate: "July 1st"}, deps); err == nil {
		t.Error("malformed date accepted")
	}
	if _, err := ExecuteRecordStatusChange(context.Background(), RecordStatusChangeInput{
		MemberID: "m1", EffectiveDate: "2025-07-01", NewStatus: "paused",
	}, deps); err == nil {
		t.Error("unknown status accepted")
	}
}
