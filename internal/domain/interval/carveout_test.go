package interval

import (
	"fmt"
	"sort"
	"testing"

	"gymdesk/internal/domain/month"
)

// sequentialID returns a deterministic ID generator for tests.
func sequentialID() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("iv-%d", n)
	}
}

// apply executes a CarveOutPlan against an in-memory interval set,
// mirroring what the SQLite store does in one transaction.
func apply(existing []Interval, plan CarveOutPlan) []Interval {
	deleted := make(map[string]bool)
	for _, id := range plan.Deletes {
		deleted[id] = true
	}
	updated := make(map[string]Interval)
	for _, iv := range plan.Updates {
		updated[iv.ID] = iv
	}

	var result []Interval
	for _, iv := range existing {
		if deleted[iv.ID] {
			continue
		}
		if u, ok := updated[iv.ID]; ok {
			result = append(result, u)
			continue
		}
		result = append(result, iv)
	}
	result = append(result, plan.Inserts...)
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate < result[j].StartDate })
	return result
}

// assertNoOverlap fails the test if any two intervals share a calendar day
// or more than one interval is open-ended.
func assertNoOverlap(t *testing.T, intervals []Interval) {
	t.Helper()
	openCount := 0
	for i, a := range intervals {
		if a.IsOpen() {
			openCount++
		}
		for _, b := range intervals[i+1:] {
			bEnd := b.EndDate
			if b.IsOpen() {
				bEnd = "9999-12-31"
			}
			if a.Overlaps(b.StartDate, bEnd) {
				t.Errorf("intervals overlap: [%s..%s] and [%s..%s]", a.StartDate, a.EndDate, b.StartDate, b.EndDate)
			}
		}
	}
	if openCount > 1 {
		t.Errorf("found %d open intervals, want at most 1", openCount)
	}
}

func mustMonth(t *testing.T, s string) month.Month {
	t.Helper()
	m, err := month.Parse(s)
	if err != nil {
		t.Fatalf("bad month %q: %v", s, err)
	}
	return m
}

// TestPlanCarveOut_SplitOpenInterval covers the straddle case: a single
// open interval from January split by a June carve-out into Jan-May,
// June (new plan), and July-onward (old plan, still open).
func TestPlanCarveOut_SplitOpenInterval(t *testing.T) {
	existing := []Interval{{
		ID: "orig", MemberID: "m1", StudioID: "s1",
		Status: StatusActive, Plan: "standard", MonthlyFee: 11000,
		StartDate: "2025-01-01", EndDate: "",
	}}
	repl := Interval{MemberID: "m1", Status: StatusActive, Plan: "premium", MonthlyFee: 16500}

	plan, err := PlanCarveOut(existing, mustMonth(t, "2025-06"), repl, sequentialID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := apply(existing, plan)
	if len(result) != 3 {
		t.Fatalf("got %d intervals, want 3: %+v", len(result), result)
	}
	assertNoOverlap(t, result)

	left, mid, right := result[0], result[1], result[2]
	if left.EndDate != "2025-05-31" || left.Plan != "standard" {
		t.Errorf("left = [%s..%s] plan=%s, want end 2025-05-31 plan standard", left.StartDate, left.EndDate, left.Plan)
	}
	if mid.StartDate != "2025-06-01" || mid.EndDate != "2025-06-30" || mid.Plan != "premium" || mid.MonthlyFee != 16500 {
		t.Errorf("mid = %+v, want June premium 16500", mid)
	}
	if mid.StudioID != "s1" {
		t.Errorf("mid studio = %q, want inherited s1", mid.StudioID)
	}
	if right.StartDate != "2025-07-01" || !right.IsOpen() || right.Plan != "standard" || right.MonthlyFee != 11000 {
		t.Errorf("right = %+v, want open from 2025-07-01 carrying original plan/fee", right)
	}
}

// TestPlanCarveOut_FullyInsideDeleted covers the case where an existing
// interval is swallowed whole by the target month.
func TestPlanCarveOut_FullyInsideDeleted(t *testing.T) {
	existing := []Interval{{
		ID: "inner", MemberID: "m1", Status: StatusActive,
		StartDate: "2025-06-05", EndDate: "2025-06-20",
	}}
	repl := Interval{MemberID: "m1", Plan: "premium"}

	plan, err := PlanCarveOut(existing, mustMonth(t, "2025-06"), repl, sequentialID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Deletes) != 1 || plan.Deletes[0] != "inner" {
		t.Errorf("deletes = %v, want [inner]", plan.Deletes)
	}

	result := apply(existing, plan)
	if len(result) != 1 {
		t.Fatalf("got %d intervals, want 1", len(result))
	}
	assertNoOverlap(t, result)
	if result[0].StartDate != "2025-06-01" || result[0].EndDate != "2025-06-30" {
		t.Errorf("month interval = [%s..%s]", result[0].StartDate, result[0].EndDate)
	}
}

// TestPlanCarveOut_LeftOverlapTrimmed covers an interval ending inside
// the month: its end is trimmed to the day before the month.
func TestPlanCarveOut_LeftOverlapTrimmed(t *testing.T) {
	existing := []Interval{{
		ID: "left", MemberID: "m1", Status: StatusActive,
		StartDate: "2025-03-01", EndDate: "2025-06-15",
	}}
	repl := Interval{MemberID: "m1"}

	plan, err := PlanCarveOut(existing, mustMonth(t, "2025-06"), repl, sequentialID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := apply(existing, plan)
	assertNoOverlap(t, result)
	if len(result) != 2 {
		t.Fatalf("got %d intervals, want 2", len(result))
	}
	if result[0].EndDate != "2025-05-31" {
		t.Errorf("trimmed end = %s, want 2025-05-31", result[0].EndDate)
	}
}

// TestPlanCarveOut_RightOverlapShifted covers an interval starting inside
// the month and running past it: its start moves to the day after.
func TestPlanCarveOut_RightOverlapShifted(t *testing.T) {
	existing := []Interval{{
		ID: "right", MemberID: "m1", Status: StatusActive,
		StartDate: "2025-06-10", EndDate: "",
	}}
	repl := Interval{MemberID: "m1"}

	plan, err := PlanCarveOut(existing, mustMonth(t, "2025-06"), repl, sequentialID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := apply(existing, plan)
	assertNoOverlap(t, result)
	if len(result) != 2 {
		t.Fatalf("got %d intervals, want 2", len(result))
	}
	shifted := result[1]
	if shifted.StartDate != "2025-07-01" || !shifted.IsOpen() {
		t.Errorf("shifted = [%s..%s], want open from 2025-07-01", shifted.StartDate, shifted.EndDate)
	}
}

// TestPlanCarveOut_Idempotent verifies that carving the same month twice
// with identical arguments converges: the second application yields the
// same interval layout as the first.
func TestPlanCarveOut_Idempotent(t *testing.T) {
	state := []Interval{{
		ID: "orig", MemberID: "m1", Status: StatusActive, Plan: "standard",
		MonthlyFee: 11000, StartDate: "2025-01-01", EndDate: "",
	}}
	target := mustMonth(t, "2025-06")
	repl := Interval{MemberID: "m1", Status: StatusActive, Plan: "premium", MonthlyFee: 16500}
	gen := sequentialID()

	overlapping := func(state []Interval) []Interval {
		var out []Interval
		for _, iv := range state {
			if iv.Overlaps(target.FirstDay(), target.LastDay()) {
				out = append(out, iv)
			}
		}
		return out
	}

	plan1, err := PlanCarveOut(overlapping(state), target, repl, gen)
	if err != nil {
		t.Fatalf("first carve: %v", err)
	}
	state = apply(state, plan1)
	assertNoOverlap(t, state)

	plan2, err := PlanCarveOut(overlapping(state), target, repl, gen)
	if err != nil {
		t.Fatalf("second carve: %v", err)
	}
	state2 := apply(state, plan2)
	assertNoOverlap(t, state2)

	if len(state2) != len(state) {
		t.Fatalf("second carve changed interval count: %d -> %d", len(state), len(state2))
	}
	for i := range state {
		a, b := state[i], state2[i]
		if a.StartDate != b.StartDate || a.EndDate != b.EndDate || a.Plan != b.Plan || a.MonthlyFee != b.MonthlyFee || a.Status != b.Status {
			t.Errorf("interval %d drifted: %+v -> %+v", i, a, b)
		}
	}
}

// TestPlanCarveOut_SequenceNeverOverlaps runs a series of carve-outs over
// mixed months and checks the non-overlap invariant after every step.
func TestPlanCarveOut_SequenceNeverOverlaps(t *testing.T) {
	state := []Interval{{
		ID: "orig", MemberID: "m1", Status: StatusActive, Plan: "standard",
		MonthlyFee: 11000, StartDate: "2024-10-01", EndDate: "",
	}}
	gen := sequentialID()

	months := []string{"2025-02", "2025-01", "2025-02", "2024-12", "2025-06", "2025-04"}
	for _, ms := range months {
		target := mustMonth(t, ms)
		var overlapping []Interval
		for _, iv := range state {
			if iv.Overlaps(target.FirstDay(), target.LastDay()) {
				overlapping = append(overlapping, iv)
			}
		}
		repl := Interval{MemberID: "m1", Status: StatusSuspended, Plan: "hold", MonthlyFee: 0}
		plan, err := PlanCarveOut(overlapping, target, repl, gen)
		if err != nil {
			t.Fatalf("carve %s: %v", ms, err)
		}
		state = apply(state, plan)
		assertNoOverlap(t, state)

		covered := 0
		for _, iv := range state {
			if iv.StartDate == target.FirstDay() && iv.EndDate == target.LastDay() {
				covered++
			}
		}
		if covered != 1 {
			t.Errorf("after carving %s: %d intervals span the month, want 1", ms, covered)
		}
	}
}

// TestPlanCarveOut_NoExisting covers a member with no history: only the
// new month interval is inserted.
func TestPlanCarveOut_NoExisting(t *testing.T) {
	repl := Interval{MemberID: "m1", StudioID: "s2", Plan: "premium"}
	plan, err := PlanCarveOut(nil, mustMonth(t, "2025-06"), repl, sequentialID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Updates) != 0 || len(plan.Deletes) != 0 || len(plan.Inserts) != 1 {
		t.Fatalf("plan = %+v, want single insert", plan)
	}
	ins := plan.Inserts[0]
	if ins.Status != StatusActive {
		t.Errorf("status defaulted to %q, want active", ins.Status)
	}
	if ins.StudioID != "s2" {
		t.Errorf("studio = %q, want explicit s2 kept", ins.StudioID)
	}
}

// TestPlanStatusChange_ClosesOpenInterval verifies close-then-open.
func TestPlanStatusChange_ClosesOpenInterval(t *testing.T) {
	open := Interval{
		ID: "open1", MemberID: "m1", StudioID: "s1", Status: StatusActive,
		Plan: "standard", MonthlyFee: 11000, StartDate: "2025-01-01",
	}
	repl := Interval{MemberID: "m1", Status: StatusSuspended}

	plan, err := PlanStatusChange(&open, "2025-06-15", repl, sequentialID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Updates) != 1 || plan.Updates[0].EndDate != "2025-06-14" {
		t.Fatalf("updates = %+v, want open1 closed at 2025-06-14", plan.Updates)
	}
	if len(plan.Inserts) != 1 {
		t.Fatalf("inserts = %+v, want one new open interval", plan.Inserts)
	}
	ins := plan.Inserts[0]
	if ins.StartDate != "2025-06-15" || !ins.IsOpen() || ins.Status != StatusSuspended {
		t.Errorf("insert = %+v", ins)
	}
	if ins.StudioID != "s1" {
		t.Errorf("studio = %q, want inherited s1", ins.StudioID)
	}
}

// TestPlanStatusChange_NoOpenInterval verifies the insert-only path.
func TestPlanStatusChange_NoOpenInterval(t *testing.T) {
	repl := Interval{MemberID: "m1", Status: StatusActive}
	plan, err := PlanStatusChange(nil, "2025-06-15", repl, sequentialID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Updates) != 0 || len(plan.Deletes) != 0 || len(plan.Inserts) != 1 {
		t.Errorf("plan = %+v, want single insert", plan)
	}
}

// TestPlanStatusChange_SameDayOpenInterval: closing an interval that
// opened on the effective date would invert it; it is deleted instead.
func TestPlanStatusChange_SameDayOpenInterval(t *testing.T) {
	open := Interval{ID: "open1", MemberID: "m1", Status: StatusActive, StartDate: "2025-06-15"}
	repl := Interval{MemberID: "m1", Status: StatusWithdrawn}

	plan, err := PlanStatusChange(&open, "2025-06-15", repl, sequentialID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Deletes) != 1 || plan.Deletes[0] != "open1" {
		t.Errorf("deletes = %v, want [open1]", plan.Deletes)
	}
	if len(plan.Updates) != 0 {
		t.Errorf("updates = %+v, want none", plan.Updates)
	}
}
