package interval

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/interval"
	"gymdesk/internal/domain/month"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("MigrateDB failed: %v", err)
	}
	// Parent rows for the member/studio foreign keys.
	if _, err := db.Exec(`INSERT INTO studio (id, name) VALUES ('s1', '銀座スタジオ'), ('s2', '渋谷スタジオ')`); err != nil {
		t.Fatalf("seed studios: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO member (id, studio_id, name, status) VALUES
		('m1', 's1', '山田太郎', 'active'),
		('m2', 's2', '佐藤花子', 'active'),
		('m3', 's1', '田中一郎', 'active'),
		('m4', 's1', '鈴木美咲', 'active')`); err != nil {
		t.Fatalf("seed members: %v", err)
	}
	return NewSQLiteStore(db)
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	iv := domain.Interval{
		ID:         "iv1",
		MemberID:   "m1",
		StudioID:   "s1",
		Status:     domain.StatusActive,
		Plan:       "月4回プラン",
		MonthlyFee: 13200,
		StartDate:  "2025-01-01",
	}
	if err := store.Save(ctx, iv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.GetByID(ctx, "iv1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != iv {
		t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", got, iv)
	}
	if !got.IsOpen() {
		t.Error("open interval should survive NULL end_date round trip")
	}

	if _, err := store.GetByID(ctx, "missing"); err != domain.ErrNotFound {
		t.Errorf("GetByID(missing) = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_SaveRejectsUnknownMember(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	iv := domain.Interval{
		ID:        "ivx",
		MemberID:  "ghost",
		Status:    domain.StatusActive,
		StartDate: "2025-01-01",
	}
	if err := store.Save(ctx, iv); err == nil {
		t.Error("interval for unknown member accepted, want foreign key violation")
	}
}

func TestSQLiteStore_FindOverlapping(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	fixtures := []domain.Interval{
		{ID: "iv1", MemberID: "m1", Status: domain.StatusActive, StartDate: "2025-01-01", EndDate: "2025-03-31"},
		{ID: "iv2", MemberID: "m1", Status: domain.StatusSuspended, StartDate: "2025-04-01", EndDate: "2025-05-31"},
		{ID: "iv3", MemberID: "m1", Status: domain.StatusActive, StartDate: "2025-06-01"},
		{ID: "iv4", MemberID: "m2", Status: domain.StatusActive, StartDate: "2025-01-01"},
	}
	for _, iv := range fixtures {
		if err := store.Save(ctx, iv); err != nil {
			t.Fatalf("Save %s failed: %v", iv.ID, err)
		}
	}

	got, err := store.FindOverlapping(ctx, "m1", "2025-05-01", "2025-05-31")
	if err != nil {
		t.Fatalf("FindOverlapping failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "iv2" {
		t.Fatalf("May overlap = %+v, want only iv2", got)
	}

	got, err = store.FindOverlapping(ctx, "m1", "2025-03-01", "2025-06-30")
	if err != nil {
		t.Fatalf("FindOverlapping failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Mar-Jun overlap count = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].StartDate > got[i].StartDate {
			t.Errorf("results not ordered by start_date: %s before %s", got[i-1].StartDate, got[i].StartDate)
		}
	}

	// Open-ended interval overlaps any later month.
	got, err = store.FindOverlapping(ctx, "m1", "2030-01-01", "2030-01-31")
	if err != nil {
		t.Fatalf("FindOverlapping failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "iv3" {
		t.Fatalf("future overlap = %+v, want only iv3", got)
	}
}

func TestSQLiteStore_FindOpenByMember(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.FindOpenByMember(ctx, "m1"); err != domain.ErrNoOpenInterval {
		t.Errorf("no rows: err = %v, want ErrNoOpenInterval", err)
	}

	closed := domain.Interval{ID: "iv1", MemberID: "m1", Status: domain.StatusActive, StartDate: "2025-01-01", EndDate: "2025-05-31"}
	open := domain.Interval{ID: "iv2", MemberID: "m1", Status: domain.StatusSuspended, StartDate: "2025-06-01"}
	if err := store.Save(ctx, closed); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, open); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.FindOpenByMember(ctx, "m1")
	if err != nil {
		t.Fatalf("FindOpenByMember failed: %v", err)
	}
	if got.ID != "iv2" {
		t.Errorf("open interval = %s, want iv2", got.ID)
	}
}

func TestSQLiteStore_FindActiveForStudio(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	fixtures := []domain.Interval{
		{ID: "iv1", MemberID: "m1", StudioID: "s1", Status: domain.StatusActive, StartDate: "2025-01-01"},
		{ID: "iv2", MemberID: "m2", StudioID: "s2", Status: domain.StatusActive, StartDate: "2025-01-01"},
		{ID: "iv3", MemberID: "m3", StudioID: "s1", Status: domain.StatusWithdrawn, StartDate: "2025-01-01"},
		{ID: "iv4", MemberID: "m4", StudioID: "s1", Status: domain.StatusActive, StartDate: "2025-07-01"},
	}
	for _, iv := range fixtures {
		if err := store.Save(ctx, iv); err != nil {
			t.Fatalf("Save %s failed: %v", iv.ID, err)
		}
	}

	got, err := store.FindActiveForStudio(ctx, "s1", "2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatalf("FindActiveForStudio failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "iv1" {
		t.Fatalf("s1 June actives = %+v, want only iv1", got)
	}

	got, err = store.FindActiveForStudio(ctx, "", "2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatalf("FindActiveForStudio failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("all-studio June actives = %d rows, want 2", len(got))
	}
}

// TestSQLiteStore_ApplyCarveOut runs a planned month replacement
// end-to-end: plan against stored rows, apply, and verify the timeline
// that comes back out.
func TestSQLiteStore_ApplyCarveOut(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	original := domain.Interval{
		ID:         "iv1",
		MemberID:   "m1",
		StudioID:   "s1",
		Status:     domain.StatusActive,
		Plan:       "月4回プラン",
		MonthlyFee: 13200,
		StartDate:  "2025-01-15",
	}
	if err := store.Save(ctx, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	target, err := month.Parse("2025-06")
	if err != nil {
		t.Fatalf("Parse month: %v", err)
	}
	existing, err := store.FindOverlapping(ctx, "m1", target.FirstDay(), target.LastDay())
	if err != nil {
		t.Fatalf("FindOverlapping failed: %v", err)
	}

	next := 0
	newID := func() string {
		next++
		return fmt.Sprintf("gen-%d", next)
	}
	repl := domain.Interval{
		MemberID:   "m1",
		Status:     domain.StatusSuspended,
		Plan:       "休会",
		MonthlyFee: 0,
	}
	plan, err := domain.PlanCarveOut(existing, target, repl, newID)
	if err != nil {
		t.Fatalf("PlanCarveOut failed: %v", err)
	}

	if err := store.ApplyCarveOut(ctx, plan); err != nil {
		t.Fatalf("ApplyCarveOut failed: %v", err)
	}

	timeline, err := store.ListByMember(ctx, "m1")
	if err != nil {
		t.Fatalf("ListByMember failed: %v", err)
	}
	if len(timeline) != 3 {
		t.Fatalf("timeline length = %d, want 3\n%+v", len(timeline), timeline)
	}

	left, mid, right := timeline[0], timeline[1], timeline[2]
	if left.ID != "iv1" || left.EndDate != "2025-05-31" {
		t.Errorf("left segment = %+v, want iv1 ending 2025-05-31", left)
	}
	if mid.Status != domain.StatusSuspended || mid.StartDate != "2025-06-01" || mid.EndDate != "2025-06-30" {
		t.Errorf("June segment = %+v, want suspended 2025-06-01..2025-06-30", mid)
	}
	if right.StartDate != "2025-07-01" || !right.IsOpen() {
		t.Errorf("right segment = %+v, want open from 2025-07-01", right)
	}
	if right.Status != domain.StatusActive || right.MonthlyFee != 13200 {
		t.Errorf("right segment should carry the original plan, got %+v", right)
	}
	if mid.StudioID != "s1" {
		t.Errorf("June segment studio = %q, want inherited s1", mid.StudioID)
	}

	// Replacing June with the same status again is a no-op timeline-wise.
	existing, err = store.FindOverlapping(ctx, "m1", target.FirstDay(), target.LastDay())
	if err != nil {
		t.Fatalf("FindOverlapping failed: %v", err)
	}
	plan, err = domain.PlanCarveOut(existing, target, repl, newID)
	if err != nil {
		t.Fatalf("second PlanCarveOut failed: %v", err)
	}
	if err := store.ApplyCarveOut(ctx, plan); err != nil {
		t.Fatalf("second ApplyCarveOut failed: %v", err)
	}
	timeline2, err := store.ListByMember(ctx, "m1")
	if err != nil {
		t.Fatalf("ListByMember failed: %v", err)
	}
	if len(timeline2) != 3 {
		t.Fatalf("timeline length after re-apply = %d, want 3", len(timeline2))
	}
	for i := 1; i < len(timeline2); i++ {
		prev, cur := timeline2[i-1], timeline2[i]
		if prev.EndDate == "" || prev.EndDate >= cur.StartDate {
			t.Errorf("overlapping segments: %+v then %+v", prev, cur)
		}
	}
}
