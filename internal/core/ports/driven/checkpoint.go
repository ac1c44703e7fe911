package driven

import (
	"context"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

// CheckpointStore persists scan progress per category and mode.
type CheckpointStore interface {
	// Read returns the last committed checkpoint. A zero cursor means none.
	Read(ctx context.Context, category domain.Category, mode domain.ScanMode) (domain.Checkpoint, error)

	// Advance stores a checkpoint. Callers advance only after the batch it
	// covers has committed. Moving the cursor backwards fails with
	// domain.ErrInvalidInput.
	Advance(ctx context.Context, cp domain.Checkpoint) error

	// Reset clears the checkpoint after a completed pass.
	Reset(ctx context.Context, category domain.Category, mode domain.ScanMode) error

	// Defer remembers IDs to retry first on the next scan.
	Defer(ctx context.Context, category domain.Category, mode domain.ScanMode, ids []int64) error

	// Deferred returns the remembered IDs, ascending.
	Deferred(ctx context.Context, category domain.Category, mode domain.ScanMode) ([]int64, error)

	// ClearDeferred forgets IDs that were retried successfully.
	ClearDeferred(ctx context.Context, category domain.Category, mode domain.ScanMode, ids []int64) error
}
