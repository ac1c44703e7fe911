package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// checkpointStore implements driven.CheckpointStore.
type checkpointStore struct {
	store *Store
}

var _ driven.CheckpointStore = (*checkpointStore)(nil)

// Read returns the last committed checkpoint, or a zero cursor if none.
func (s *checkpointStore) Read(ctx context.Context, category domain.Category, mode domain.ScanMode) (domain.Checkpoint, error) {
	cp := domain.Checkpoint{Category: category, Mode: mode}

	row := s.store.db.QueryRowContext(ctx, `
		SELECT cursor, updated_at FROM scan_checkpoints
		WHERE category = ? AND mode = ?
	`, string(category), string(mode))

	var updatedAt string
	if err := row.Scan(&cp.Cursor, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cp, nil
		}
		return cp, fmt.Errorf("%w: reading checkpoint: %w", domain.ErrPersistence, err)
	}

	t, err := parseTime(updatedAt)
	if err != nil {
		return cp, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	cp.UpdatedAt = t
	return cp, nil
}

// Advance stores a checkpoint. The cursor never moves backwards.
func (s *checkpointStore) Advance(ctx context.Context, cp domain.Checkpoint) error {
	if cp.Cursor <= 0 {
		return fmt.Errorf("%w: checkpoint cursor %d", domain.ErrInvalidInput, cp.Cursor)
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scan_checkpoints (category, mode, cursor, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(category, mode) DO UPDATE SET
			cursor = excluded.cursor,
			updated_at = excluded.updated_at
		WHERE excluded.cursor >= scan_checkpoints.cursor
	`, string(cp.Category), string(cp.Mode), cp.Cursor, formatTime(cp.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: advancing checkpoint: %w", domain.ErrPersistence, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: advancing checkpoint: %w", domain.ErrPersistence, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: checkpoint %s/%s cannot move back to %d",
			domain.ErrInvalidInput, cp.Category, cp.Mode, cp.Cursor)
	}
	return nil
}

// Reset clears the checkpoint after a completed pass.
func (s *checkpointStore) Reset(ctx context.Context, category domain.Category, mode domain.ScanMode) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM scan_checkpoints WHERE category = ? AND mode = ?", string(category), string(mode))
	if err != nil {
		return fmt.Errorf("%w: resetting checkpoint: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Defer remembers IDs to retry first on the next scan.
func (s *checkpointStore) Defer(ctx context.Context, category domain.Category, mode domain.ScanMode, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	now := formatTime(time.Now())

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: deferring ids: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scan_deferred (category, mode, product_id, deferred_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(category, mode, product_id) DO NOTHING
		`, string(category), string(mode), id, now); err != nil {
			return fmt.Errorf("%w: deferring id %d: %w", domain.ErrPersistence, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: deferring ids: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Deferred returns the remembered IDs, ascending.
func (s *checkpointStore) Deferred(ctx context.Context, category domain.Category, mode domain.ScanMode) ([]int64, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT product_id FROM scan_deferred
		WHERE category = ? AND mode = ?
		ORDER BY product_id
	`, string(category), string(mode))
	if err != nil {
		return nil, fmt.Errorf("%w: querying deferred ids: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var ids []int64 //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning deferred id: %w", domain.ErrPersistence, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating deferred ids: %w", domain.ErrPersistence, err)
	}
	return ids, nil
}

// ClearDeferred forgets IDs that were retried successfully.
func (s *checkpointStore) ClearDeferred(ctx context.Context, category domain.Category, mode domain.ScanMode, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: clearing deferred ids: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM scan_deferred WHERE category = ? AND mode = ? AND product_id = ?",
			string(category), string(mode), id); err != nil {
			return fmt.Errorf("%w: clearing deferred id %d: %w", domain.ErrPersistence, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: clearing deferred ids: %w", domain.ErrPersistence, err)
	}
	return nil
}
