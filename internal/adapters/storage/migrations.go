package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is a single schema change applied inside a transaction.
type migration struct {
	version int
	name    string
	apply   func(tx *sql.Tx) error
}

// migrations is the ordered migration chain. Append only; never edit an
// applied migration.
var migrations = []migration{
	{1, "baseline schema", migrateBaseline},
	{2, "billing indexes", migrateBillingIndexes},
}

// LatestSchemaVersion returns the highest migration version.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the current schema version of the database,
// or 0 when no migration has been applied yet.
// PRE: db is a valid connection
// POST: returns version >= 0
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check schema_version table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var version int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// MigrateDB applies all pending migrations to the database.
// Each migration runs in its own transaction and is recorded in the
// schema_version table, so a re-run is a no-op.
// PRE: db is a valid database connection
// POST: schema is at LatestSchemaVersion()
func MigrateDB(db *sql.DB, dbPath string) error {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: begin: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: record version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", m.version, err)
		}
		slog.Info("migration_applied", "version", m.version, "name", m.name, "db", dbPath)
	}

	return nil
}

// migrateBaseline creates the initial schema.
func migrateBaseline(tx *sql.Tx) error {
	schema := `
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		studio_id TEXT,
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT
	);

	CREATE TABLE IF NOT EXISTS studio (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS member (
		id TEXT PRIMARY KEY,
		studio_id TEXT,
		name TEXT NOT NULL,
		email TEXT,
		status TEXT NOT NULL,
		plan TEXT,
		plan_category TEXT NOT NULL DEFAULT 'recurring',
		monthly_fee INTEGER,
		billing_start_month TEXT,
		transfer_day INTEGER NOT NULL DEFAULT 0,
		joined_at TEXT,
		FOREIGN KEY (studio_id) REFERENCES studio(id)
	);

	CREATE TABLE IF NOT EXISTS membership_interval (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		studio_id TEXT,
		status TEXT NOT NULL,
		plan TEXT,
		monthly_fee INTEGER,
		start_date TEXT NOT NULL,
		end_date TEXT,
		FOREIGN KEY (member_id) REFERENCES member(id)
	);

	CREATE TABLE IF NOT EXISTS payment_record (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		studio_id TEXT,
		amount INTEGER NOT NULL DEFAULT 0,
		type TEXT NOT NULL,
		target_date TEXT NOT NULL,
		payment_date TEXT,
		memo TEXT,
		status TEXT NOT NULL DEFAULT 'unpaid',
		created_at TEXT NOT NULL,
		FOREIGN KEY (member_id) REFERENCES member(id)
	);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5,
		last_attempted_at TEXT,
		created_at TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		actor_email TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		resource_type TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := tx.Exec(schema)
	return err
}

// migrateBillingIndexes adds the lookup indexes the reconciler and
// projector depend on, plus the ledger uniqueness constraint: one
// monthly_fee row per member per target month.
func migrateBillingIndexes(tx *sql.Tx) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_interval_member_start ON membership_interval(member_id, start_date)",
		"CREATE INDEX IF NOT EXISTS idx_interval_status_dates ON membership_interval(status, start_date, end_date)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_member_month_type ON payment_record(member_id, target_date, type)",
		"CREATE INDEX IF NOT EXISTS idx_payment_target ON payment_record(target_date, type)",
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
