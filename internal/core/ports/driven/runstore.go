package driven

import (
	"context"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

// RunStore keeps the ledger of scan runs.
type RunStore interface {
	// Start records a new running scan.
	Start(ctx context.Context, run *domain.ScanRun) error

	// Finish stores the terminal status, report and error of a run.
	Finish(ctx context.Context, run *domain.ScanRun) error

	// Get returns one run or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.ScanRun, error)

	// List returns the most recent runs first.
	List(ctx context.Context, limit int) ([]*domain.ScanRun, error)
}
