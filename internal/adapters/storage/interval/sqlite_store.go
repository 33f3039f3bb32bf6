package interval

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/interval"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new interval Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const selectColumns = "id, member_id, studio_id, status, plan, monthly_fee, start_date, end_date"

// scanInterval reads one row into a domain.Interval. Nullable columns
// collapse to their zero values.
func scanInterval(scan func(dest ...any) error) (domain.Interval, error) {
	var entity domain.Interval
	var studioID, plan, endDate sql.NullString
	var fee sql.NullInt64
	err := scan(
		&entity.ID,
		&entity.MemberID,
		&studioID,
		&entity.Status,
		&plan,
		&fee,
		&entity.StartDate,
		&endDate,
	)
	if err != nil {
		return domain.Interval{}, err
	}
	if studioID.Valid {
		entity.StudioID = studioID.String
	}
	if plan.Valid {
		entity.Plan = plan.String
	}
	if fee.Valid {
		entity.MonthlyFee = int(fee.Int64)
	}
	if endDate.Valid {
		entity.EndDate = endDate.String
	}
	return entity, nil
}

// GetByID retrieves an Interval by its ID.
// PRE: id is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Interval, error) {
	query := "SELECT " + selectColumns + " FROM membership_interval WHERE id = ?"
	row := s.db.QueryRowContext(ctx, query, id)
	entity, err := scanInterval(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Interval{}, domain.ErrNotFound
	}
	return entity, err
}

// FindOverlapping returns all of a member's intervals that touch the
// inclusive range [rangeStart, rangeEnd], ordered by start date.
// An interval with NULL end_date is open-ended and overlaps any range
// that starts at or after its start date.
// PRE: memberID is non-empty, rangeStart <= rangeEnd
// POST: Returns matching intervals ordered by start_date ascending
func (s *SQLiteStore) FindOverlapping(ctx context.Context, memberID, rangeStart, rangeEnd string) ([]domain.Interval, error) {
	query := "SELECT " + selectColumns + ` FROM membership_interval
		WHERE member_id = ?
		  AND start_date <= ?
		  AND (end_date IS NULL OR end_date >= ?)
		ORDER BY start_date ASC`
	rows, err := s.db.QueryContext(ctx, query, memberID, rangeEnd, rangeStart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIntervals(rows)
}

// FindOpenByMember returns the member's open-ended interval.
// POST: Returns the interval or domain.ErrNoOpenInterval
func (s *SQLiteStore) FindOpenByMember(ctx context.Context, memberID string) (domain.Interval, error) {
	query := "SELECT " + selectColumns + ` FROM membership_interval
		WHERE member_id = ? AND end_date IS NULL
		ORDER BY start_date DESC LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, memberID)
	entity, err := scanInterval(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Interval{}, domain.ErrNoOpenInterval
	}
	return entity, err
}

// ListByMember returns all intervals for a member ordered by start date.
func (s *SQLiteStore) ListByMember(ctx context.Context, memberID string) ([]domain.Interval, error) {
	query := "SELECT " + selectColumns + " FROM membership_interval WHERE member_id = ? ORDER BY start_date ASC"
	rows, err := s.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIntervals(rows)
}

// FindActiveForStudio returns active-status intervals overlapping the
// month [monthStart, monthEnd]. An empty studioID matches all studios.
// POST: Returns intervals ordered by member_id, then start_date
func (s *SQLiteStore) FindActiveForStudio(ctx context.Context, studioID, monthStart, monthEnd string) ([]domain.Interval, error) {
	query := "SELECT " + selectColumns + ` FROM membership_interval
		WHERE status = ?
		  AND start_date <= ?
		  AND (end_date IS NULL OR end_date >= ?)`
	args := []any{domain.StatusActive, monthEnd, monthStart}
	if studioID != "" {
		query += " AND studio_id = ?"
		args = append(args, studioID)
	}
	query += " ORDER BY member_id, start_date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIntervals(rows)
}

// Save persists an Interval to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Interval) error {
	_, err := s.db.ExecContext(ctx, upsertQuery(), upsertArgs(entity)...)
	return err
}

// Delete removes an Interval from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM membership_interval WHERE id = ?", id)
	return err
}

// ApplyCarveOut executes every mutation in the plan inside a single
// transaction: either the month is fully carved out or nothing changes.
// PRE: plan was produced by domain.PlanCarveOut or domain.PlanStatusChange
// POST: All updates, deletes and inserts committed atomically
func (s *SQLiteStore) ApplyCarveOut(ctx context.Context, plan domain.CarveOutPlan) error {
	if plan.Empty() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, iv := range plan.Updates {
		if _, err := tx.ExecContext(ctx, upsertQuery(), upsertArgs(iv)...); err != nil {
			return fmt.Errorf("carve-out update %s: %w", iv.ID, err)
		}
	}
	for _, id := range plan.Deletes {
		if _, err := tx.ExecContext(ctx, "DELETE FROM membership_interval WHERE id = ?", id); err != nil {
			return fmt.Errorf("carve-out delete %s: %w", id, err)
		}
	}
	for _, iv := range plan.Inserts {
		if _, err := tx.ExecContext(ctx, upsertQuery(), upsertArgs(iv)...); err != nil {
			return fmt.Errorf("carve-out insert %s: %w", iv.ID, err)
		}
	}

	return tx.Commit()
}

// upsertQuery builds the INSERT ... ON CONFLICT statement shared by
// Save and ApplyCarveOut.
func upsertQuery() string {
	fields := []string{"id", "member_id", "studio_id", "status", "plan", "monthly_fee", "start_date", "end_date"}
	placeholders := []string{"?", "?", "?", "?", "?", "?", "?", "?"}
	updates := []string{
		"member_id=excluded.member_id", "studio_id=excluded.studio_id",
		"status=excluded.status", "plan=excluded.plan",
		"monthly_fee=excluded.monthly_fee", "start_date=excluded.start_date",
		"end_date=excluded.end_date",
	}
	return fmt.Sprintf(
		"INSERT INTO membership_interval (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

func upsertArgs(entity domain.Interval) []any {
	var studioID, endDate any
	if entity.StudioID != "" {
		studioID = entity.StudioID
	}
	if entity.EndDate != "" {
		endDate = entity.EndDate
	}
	return []any{
		entity.ID,
		entity.MemberID,
		studioID,
		entity.Status,
		entity.Plan,
		entity.MonthlyFee,
		entity.StartDate,
		endDate,
	}
}

func collectIntervals(rows *sql.Rows) ([]domain.Interval, error) {
	var results []domain.Interval
	for rows.Next() {
		entity, err := scanInterval(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
