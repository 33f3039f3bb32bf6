package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/ledger"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new ledger Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const selectColumns = "id, member_id, studio_id, amount, type, target_date, payment_date, memo, status, created_at"

func scanRecord(scan func(dest ...any) error) (domain.PaymentRecord, error) {
	var entity domain.PaymentRecord
	var studioID, paymentDate, memo sql.NullString
	err := scan(
		&entity.ID,
		&entity.MemberID,
		&studioID,
		&entity.Amount,
		&entity.Type,
		&entity.TargetDate,
		&paymentDate,
		&memo,
		&entity.Status,
		&entity.CreatedAt,
	)
	if err != nil {
		return domain.PaymentRecord{}, err
	}
	if studioID.Valid {
		entity.StudioID = studioID.String
	}
	if paymentDate.Valid {
		entity.PaymentDate = paymentDate.String
	}
	if memo.Valid {
		entity.Memo = memo.String
	}
	return entity, nil
}

// GetByID retrieves a PaymentRecord by its ID.
// PRE: id is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.PaymentRecord, error) {
	query := "SELECT " + selectColumns + " FROM payment_record WHERE id = ?"
	row := s.db.QueryRowContext(ctx, query, id)
	entity, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return domain.PaymentRecord{}, domain.ErrNotFound
	}
	return entity, err
}

// GetByMemberMonth retrieves the single record for a member, target
// month and type. At most one such row exists per the ledger unique
// index.
// PRE: targetDate is a first-of-month date
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByMemberMonth(ctx context.Context, memberID, targetDate, recordType string) (domain.PaymentRecord, error) {
	query := "SELECT " + selectColumns + " FROM payment_record WHERE member_id = ? AND target_date = ? AND type = ?"
	row := s.db.QueryRowContext(ctx, query, memberID, targetDate, recordType)
	entity, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return domain.PaymentRecord{}, domain.ErrNotFound
	}
	return entity, err
}

// ListForMonth returns all records for a target month. An empty
// studioID matches all studios.
// POST: Returns records ordered by member_id
func (s *SQLiteStore) ListForMonth(ctx context.Context, studioID, targetDate string) ([]domain.PaymentRecord, error) {
	query := "SELECT " + selectColumns + " FROM payment_record WHERE target_date = ?"
	args := []any{targetDate}
	if studioID != "" {
		query += " AND studio_id = ?"
		args = append(args, studioID)
	}
	query += " ORDER BY member_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListMemberIDsForMonth returns the IDs of every member holding a
// record of the given type for the target month, paid or not, across
// all studios. A memo-only unpaid row counts: the month is already
// recorded somewhere and must not be billed again elsewhere.
// POST: Returns distinct member IDs
func (s *SQLiteStore) ListMemberIDsForMonth(ctx context.Context, targetDate, recordType string) ([]string, error) {
	query := `SELECT DISTINCT member_id FROM payment_record
		WHERE target_date = ? AND type = ? ORDER BY member_id`
	rows, err := s.db.QueryContext(ctx, query, targetDate, recordType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListRecentByMember returns a member's records of the given type with
// target_date strictly before beforeDate, newest first.
// PRE: limit > 0
// POST: Returns at most limit records ordered by target_date descending
func (s *SQLiteStore) ListRecentByMember(ctx context.Context, memberID, recordType, beforeDate string, limit int) ([]domain.PaymentRecord, error) {
	query := "SELECT " + selectColumns + ` FROM payment_record
		WHERE member_id = ? AND type = ? AND target_date < ?
		ORDER BY target_date DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, memberID, recordType, beforeDate, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListByMember returns every record for a member, newest target month
// first.
func (s *SQLiteStore) ListByMember(ctx context.Context, memberID string) ([]domain.PaymentRecord, error) {
	query := "SELECT " + selectColumns + " FROM payment_record WHERE member_id = ? ORDER BY target_date DESC, type"
	rows, err := s.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Save persists a PaymentRecord to the database. The creation
// timestamp is set on first insert and preserved on update.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.PaymentRecord) error {
	fields := []string{"id", "member_id", "studio_id", "amount", "type", "target_date", "payment_date", "memo", "status", "created_at"}
	placeholders := []string{"?", "?", "?", "?", "?", "?", "?", "?", "?", "datetime('now')"}
	updates := []string{
		"member_id=excluded.member_id", "studio_id=excluded.studio_id",
		"amount=excluded.amount", "type=excluded.type",
		"target_date=excluded.target_date", "payment_date=excluded.payment_date",
		"memo=excluded.memo", "status=excluded.status",
	}

	query := fmt.Sprintf(
		"INSERT INTO payment_record (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	var studioID, paymentDate, memo any
	if entity.StudioID != "" {
		studioID = entity.StudioID
	}
	if entity.PaymentDate != "" {
		paymentDate = entity.PaymentDate
	}
	if entity.Memo != "" {
		memo = entity.Memo
	}

	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		entity.MemberID,
		studioID,
		entity.Amount,
		entity.Type,
		entity.TargetDate,
		paymentDate,
		memo,
		entity.Status,
	)
	return err
}

// Delete removes a PaymentRecord from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM payment_record WHERE id = ?", id)
	return err
}

func collectRecords(rows *sql.Rows) ([]domain.PaymentRecord, error) {
	var results []domain.PaymentRecord
	for rows.Next() {
		entity, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
