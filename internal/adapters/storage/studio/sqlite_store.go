package studio

import (
	"context"
	"database/sql"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/studio"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new studio Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Studio by its ID.
// PRE: id is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Studio, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, name, code FROM studio WHERE id = ?", id)
	var entity domain.Studio
	err := row.Scan(&entity.ID, &entity.Name, &entity.Code)
	if err == sql.ErrNoRows {
		return domain.Studio{}, domain.ErrNotFound
	}
	return entity, err
}

// Save persists a Studio to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Studio) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO studio (id, name, code) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, code=excluded.code`,
		entity.ID, entity.Name, entity.Code)
	return err
}

// Delete removes a Studio from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM studio WHERE id = ?", id)
	return err
}

// List returns all studios ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Studio, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, code FROM studio ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Studio
	for rows.Next() {
		var entity domain.Studio
		if err := rows.Scan(&entity.ID, &entity.Name, &entity.Code); err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
