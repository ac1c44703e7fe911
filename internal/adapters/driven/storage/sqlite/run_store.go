package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// Start records a new running scan.
func (s *runStore) Start(ctx context.Context, run *domain.ScanRun) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	report, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO scan_runs (id, category, mode, status, started_at, finished_at, report, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.Category), string(run.Mode), string(run.Status),
		formatTime(run.StartedAt), formatNullableTime(run.FinishedAt), string(report), run.Error)
	if err != nil {
		return fmt.Errorf("%w: starting scan run: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Finish stores the terminal status, report and error of a run.
func (s *runStore) Finish(ctx context.Context, run *domain.ScanRun) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	report, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE scan_runs SET status = ?, finished_at = ?, report = ?, error = ?
		WHERE id = ?
	`, string(run.Status), formatNullableTime(run.FinishedAt), string(report), run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("%w: finishing scan run: %w", domain.ErrPersistence, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("scan run %s: %w", run.ID, domain.ErrNotFound)
	}
	return nil
}

// Get returns one run by ID.
func (s *runStore) Get(ctx context.Context, id string) (*domain.ScanRun, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, category, mode, status, started_at, finished_at, report, error
		FROM scan_runs WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: querying scan run: %w", domain.ErrPersistence, err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return runs[0], nil
}

// List returns the most recent runs first.
func (s *runStore) List(ctx context.Context, limit int) ([]*domain.ScanRun, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, category, mode, status, started_at, finished_at, report, error
		FROM scan_runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: querying scan runs: %w", domain.ErrPersistence, err)
	}
	return scanRuns(rows)
}

// scanRuns scans and closes a scan_runs result set.
func scanRuns(rows *sql.Rows) ([]*domain.ScanRun, error) {
	defer rows.Close()

	var runs []*domain.ScanRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		var run domain.ScanRun
		var category, mode, status, startedAt, report string
		var finishedAt sql.NullString

		if err := rows.Scan(&run.ID, &category, &mode, &status,
			&startedAt, &finishedAt, &report, &run.Error); err != nil {
			return nil, fmt.Errorf("%w: scanning scan run: %w", domain.ErrPersistence, err)
		}

		run.Category = domain.Category(category)
		run.Mode = domain.ScanMode(mode)
		run.Status = domain.RunStatus(status)

		var err error
		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		if run.FinishedAt, err = parseNullableTime(finishedAt); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		if err := json.Unmarshal([]byte(report), &run.Report); err != nil {
			return nil, errors.Join(domain.ErrPersistence, fmt.Errorf("unmarshalling report: %w", err))
		}
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating scan runs: %w", domain.ErrPersistence, err)
	}
	return runs, nil
}
