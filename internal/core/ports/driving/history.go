package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// HistoryService answers questions about stored history.
type HistoryService interface {
	// History returns every version of every entity of a kind for a product,
	// grouped by key, oldest version first.
	History(ctx context.Context, kind domain.EntityKind, productID int64) ([]KeyHistory, error)

	// Stats summarises changes per kind since the cutoff.
	Stats(ctx context.Context, since time.Time) ([]driven.ChangeCounts, error)

	// Runs lists the most recent scan runs.
	Runs(ctx context.Context, limit int) ([]*domain.ScanRun, error)
}

// KeyHistory is the version list of one entity key.
type KeyHistory struct {
	Key      domain.EntityKey
	Versions []*domain.VersionedRecord
}
