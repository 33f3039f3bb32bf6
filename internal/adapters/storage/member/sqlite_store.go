package member

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/member"
	"gymdesk/internal/domain/planname"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new member Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const selectColumns = "id, studio_id, name, email, status, plan, plan_category, monthly_fee, billing_start_month, transfer_day, joined_at"

func scanMember(scan func(dest ...any) error) (domain.Member, error) {
	var entity domain.Member
	var studioID, email, plan, billingStart, joinedAt sql.NullString
	var fee sql.NullInt64
	var category string
	err := scan(
		&entity.ID,
		&studioID,
		&entity.Name,
		&email,
		&entity.Status,
		&plan,
		&category,
		&fee,
		&billingStart,
		&entity.TransferDay,
		&joinedAt,
	)
	if err != nil {
		return domain.Member{}, err
	}
	entity.PlanCategory = planname.Category(category)
	if studioID.Valid {
		entity.StudioID = studioID.String
	}
	if email.Valid {
		entity.Email = email.String
	}
	if plan.Valid {
		entity.Plan = plan.String
	}
	if fee.Valid {
		entity.MonthlyFee = int(fee.Int64)
	}
	if billingStart.Valid {
		entity.BillingStartMonth = billingStart.String
	}
	if joinedAt.Valid {
		entity.JoinedAt = joinedAt.String
	}
	return entity, nil
}

// GetByID retrieves a Member by its ID.
// PRE: id is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	query := "SELECT " + selectColumns + " FROM member WHERE id = ?"
	row := s.db.QueryRowContext(ctx, query, id)
	entity, err := scanMember(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Member{}, domain.ErrNotFound
	}
	return entity, err
}

// GetByEmail retrieves a Member by email.
// PRE: email is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Member, error) {
	query := "SELECT " + selectColumns + " FROM member WHERE email = ?"
	row := s.db.QueryRowContext(ctx, query, email)
	entity, err := scanMember(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Member{}, domain.ErrNotFound
	}
	return entity, err
}

// Save persists a Member to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Member) error {
	fields := []string{"id", "studio_id", "name", "email", "status", "plan", "plan_category", "monthly_fee", "billing_start_month", "transfer_day", "joined_at"}
	placeholders := []string{"?", "?", "?", "?", "?", "?", "?", "?", "?", "?", "?"}
	updates := []string{
		"studio_id=excluded.studio_id", "name=excluded.name",
		"email=excluded.email", "status=excluded.status",
		"plan=excluded.plan", "plan_category=excluded.plan_category",
		"monthly_fee=excluded.monthly_fee",
		"billing_start_month=excluded.billing_start_month",
		"transfer_day=excluded.transfer_day", "joined_at=excluded.joined_at",
	}

	query := fmt.Sprintf(
		"INSERT INTO member (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	var studioID, email, plan, billingStart, joinedAt any
	if entity.StudioID != "" {
		studioID = entity.StudioID
	}
	if entity.Email != "" {
		email = entity.Email
	}
	if entity.Plan != "" {
		plan = entity.Plan
	}
	if entity.BillingStartMonth != "" {
		billingStart = entity.BillingStartMonth
	}
	if entity.JoinedAt != "" {
		joinedAt = entity.JoinedAt
	}

	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		studioID,
		entity.Name,
		email,
		entity.Status,
		plan,
		string(entity.PlanCategory),
		entity.MonthlyFee,
		billingStart,
		entity.TransferDay,
		joinedAt,
	)
	return err
}

// Delete removes a Member from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM member WHERE id = ?", id)
	return err
}

// UpdateCurrentPlan refreshes the cached current-month columns only,
// leaving profile fields untouched.
// PRE: memberID exists
// POST: status, plan, plan_category and monthly_fee reflect the interval
// covering the current month
func (s *SQLiteStore) UpdateCurrentPlan(ctx context.Context, memberID, status, plan string, category string, monthlyFee int) error {
	query := "UPDATE member SET status = ?, plan = ?, plan_category = ?, monthly_fee = ? WHERE id = ?"
	var planArg any
	if plan != "" {
		planArg = plan
	}
	result, err := s.db.ExecContext(ctx, query, status, planArg, category, monthlyFee, memberID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("member not found: %s", memberID)
	}
	return nil
}

// listWhereClause builds the WHERE clause and args for List/Count queries.
func listWhereClause(filter ListFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any

	if filter.StudioID != "" {
		where += " AND studio_id = ?"
		args = append(args, filter.StudioID)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where += " AND (name LIKE ? OR email LIKE ?)"
		term := "%" + filter.Search + "%"
		args = append(args, term, term)
	}
	return where, args
}

// sortClause returns a safe ORDER BY clause. Only allowed columns are accepted.
func sortClause(filter ListFilter) string {
	allowed := map[string]string{
		"name": "name", "email": "email",
		"status": "status", "joined_at": "joined_at",
	}
	col, ok := allowed[filter.Sort]
	if !ok {
		return " ORDER BY name ASC"
	}
	dir := "ASC"
	if filter.Dir == "desc" {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir
}

// Count returns the total number of members matching the filter.
// PRE: filter has valid parameters
// POST: Returns count >= 0
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhereClause(filter)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM member"+where, args...).Scan(&count)
	return count, err
}

// List retrieves a list of Members based on the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	where, args := listWhereClause(filter)
	query := "SELECT " + selectColumns + " FROM member" + where
	query += sortClause(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Member
	for rows.Next() {
		entity, err := scanMember(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
