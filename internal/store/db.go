// Package store provides SQLite-based persistence for maestro: the task
// log, the model registry snapshot, the approval audit log, and the
// telemetry record log. Every mutation is committed immediately so the
// on-disk state is authoritative after each pipeline transition.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps an SQLite database connection with maestro-specific operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex

	// maxTelemetry caps the retained telemetry log. Zero means unbounded.
	maxTelemetry int
	// maxSuggestions caps the role suggestion log per insert.
	maxSuggestions int
}

// Option configures a DB.
type Option func(*DB)

// WithMaxTelemetry caps the telemetry log at n recent records.
func WithMaxTelemetry(n int) Option {
	return func(db *DB) { db.maxTelemetry = n }
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string, opts ...Option) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{
		conn:           conn,
		path:           path,
		maxSuggestions: 50,
	}
	for _, opt := range opts {
		opt(db)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Tasks},
		{2, migrationV2Models},
		{3, migrationV3Approvals},
		{4, migrationV4Telemetry},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Migration SQL statements
const migrationV1Tasks = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	description TEXT NOT NULL,
	autonomy TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	planner TEXT,
	executor TEXT,
	verifier TEXT,
	proposal TEXT,
	proposals TEXT,
	result TEXT,
	error TEXT,
	approval_id TEXT,
	created DATETIME NOT NULL,
	updated DATETIME NOT NULL,
	generation INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created);
`

const migrationV2Models = `
CREATE TABLE IF NOT EXISTS model_profiles (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	role TEXT NOT NULL,
	cost_tier TEXT NOT NULL,
	cost_per_1k REAL NOT NULL DEFAULT 0,
	success_rate REAL NOT NULL DEFAULT 0,
	avg_latency_ms INTEGER NOT NULL DEFAULT 0,
	enabled INTEGER NOT NULL DEFAULT 1,
	seq INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_model_profiles_role ON model_profiles(role);

CREATE TABLE IF NOT EXISTS role_suggestions (
	id TEXT PRIMARY KEY,
	model_id TEXT NOT NULL,
	role TEXT NOT NULL,
	reason TEXT,
	suggested_by TEXT,
	created DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_role_suggestions_model ON role_suggestions(model_id);
`

const migrationV3Approvals = `
CREATE TABLE IF NOT EXISTS approvals (
	id TEXT PRIMARY KEY,
	task_id TEXT,
	action TEXT NOT NULL,
	payload TEXT,
	risk TEXT NOT NULL,
	requested_by TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	created DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	decided_at DATETIME,
	decided_by TEXT,
	reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_approvals_status ON approvals(status);
`

const migrationV4Telemetry = `
CREATE TABLE IF NOT EXISTS telemetry (
	id TEXT PRIMARY KEY,
	ts DATETIME NOT NULL,
	model TEXT NOT NULL,
	provider TEXT,
	task_type TEXT NOT NULL,
	success INTEGER NOT NULL,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_telemetry_model ON telemetry(model);
CREATE INDEX IF NOT EXISTS idx_telemetry_pair ON telemetry(model, task_type);
`

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryRow(query, args...)
}

// Transaction runs the given function within a transaction.
func (db *DB) Transaction(fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// timeLayout is a fixed-width RFC3339 variant. RFC3339Nano trims
// trailing fractional zeros, which breaks lexicographic ordering of
// timestamps stored as TEXT.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseNullableTime parses a nullable time string from SQLite.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}

// nullString converts a string to sql.NullString, treating empty as null.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
