package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run is one ledger entry for a whole analysis run.
type Run struct {
	ID              string
	Root            string
	NumCUs          int
	MarkerField     string
	MarkerSubstring string
	StartedAt       time.Time
	CompletedAt     time.Time // zero until the run completes

	Variants       int
	OutputFiles    int
	FilesProcessed int
	FilesSkipped   int
	RowsWritten    int
}

// Output is one ledger entry per aggregate CSV produced.
type Output struct {
	RunID        string
	Variant      string
	P            int
	UB           int
	B            int
	OutputPath   string
	SourceFiles  int
	SkippedFiles int
	RowsWritten  int
	CreatedAt    time.Time
}

// RunStore handles run ledger persistence
type RunStore struct {
	db *DB
}

// NewRunStore creates a new run store
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun inserts a new run at its start.
func (s *RunStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (
			id, root, num_cus, marker_field, marker_substring, started_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Root, run.NumCUs, run.MarkerField, run.MarkerSubstring, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun stamps a run as finished and stores its summary counters.
func (s *RunStore) CompleteRun(ctx context.Context, run *Run) error {
	query := `
		UPDATE runs SET
			completed_at = ?,
			variants = ?,
			output_files = ?,
			files_processed = ?,
			files_skipped = ?,
			rows_written = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		run.CompletedAt,
		run.Variants, run.OutputFiles, run.FilesProcessed, run.FilesSkipped, run.RowsWritten,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT
			id, root, num_cus, marker_field, marker_substring,
			started_at, completed_at,
			variants, output_files, files_processed, files_skipped, rows_written
		FROM runs
		WHERE id = ?
	`

	run := &Run{}
	var completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Root, &run.NumCUs, &run.MarkerField, &run.MarkerSubstring,
		&run.StartedAt, &completedAt,
		&run.Variants, &run.OutputFiles, &run.FilesProcessed, &run.FilesSkipped, &run.RowsWritten,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if completedAt.Valid {
		run.CompletedAt = completedAt.Time
	}
	return run, nil
}

// RecordOutput inserts one output file record for a run.
func (s *RunStore) RecordOutput(ctx context.Context, out *Output) error {
	query := `
		INSERT INTO outputs (
			run_id, variant, p, ub, b, output_path,
			source_files, skipped_files, rows_written, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		out.RunID, out.Variant, out.P, out.UB, out.B, out.OutputPath,
		out.SourceFiles, out.SkippedFiles, out.RowsWritten, out.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record output: %w", err)
	}
	return nil
}

// RunOutputs lists the output records of a run, in insertion order.
func (s *RunStore) RunOutputs(ctx context.Context, runID string) ([]*Output, error) {
	query := `
		SELECT
			run_id, variant, p, ub, b, output_path,
			source_files, skipped_files, rows_written, created_at
		FROM outputs
		WHERE run_id = ?
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outputs: %w", err)
	}
	defer rows.Close()

	var outputs []*Output
	for rows.Next() {
		out := &Output{}
		if err := rows.Scan(
			&out.RunID, &out.Variant, &out.P, &out.UB, &out.B, &out.OutputPath,
			&out.SourceFiles, &out.SkippedFiles, &out.RowsWritten, &out.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan output: %w", err)
		}
		outputs = append(outputs, out)
	}
	return outputs, rows.Err()
}
