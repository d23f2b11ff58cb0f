// Package storage persists an optional run ledger: which analysis runs
// happened and which aggregate CSVs each run produced. It is
// bookkeeping only; no trace metrics are aggregated here.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping ledger database: %w", err)
	}

	// SQLite doesn't handle concurrent writes well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &DB{db}, nil
}

// Migrate runs database migrations
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationRuns,
		migrationOutputs,
		migrationIndexes,
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

const migrationRuns = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	root TEXT NOT NULL,
	num_cus INTEGER NOT NULL,
	marker_field TEXT NOT NULL,
	marker_substring TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP,

	-- Summary counters filled in on completion
	variants INTEGER NOT NULL DEFAULT 0,
	output_files INTEGER NOT NULL DEFAULT 0,
	files_processed INTEGER NOT NULL DEFAULT 0,
	files_skipped INTEGER NOT NULL DEFAULT 0,
	rows_written INTEGER NOT NULL DEFAULT 0
);
`

const migrationOutputs = `
CREATE TABLE IF NOT EXISTS outputs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id),
	variant TEXT NOT NULL,
	p INTEGER NOT NULL,
	ub INTEGER NOT NULL,
	b INTEGER NOT NULL,
	output_path TEXT NOT NULL,
	source_files INTEGER NOT NULL,
	skipped_files INTEGER NOT NULL,
	rows_written INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_outputs_run_id ON outputs(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
