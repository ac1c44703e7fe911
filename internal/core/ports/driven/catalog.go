package driven

import (
	"context"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

// CatalogClient fetches raw data from the remote catalog service.
//
// Errors follow a fixed contract the worker pool relies on:
//   - domain.ErrNotFound: the entity definitively does not exist (delisting signal)
//   - domain.ErrRateLimited: a ban signal was received and recorded; retry after the cooldown
//   - domain.ErrBlocked: too many ban signals; the scan must stop
//   - anything else: transient, retried with backoff
type CatalogClient interface {
	// Fetch performs every request of one unit of work for a product and
	// returns the response bodies unparsed.
	Fetch(ctx context.Context, kind domain.EntityKind, productID int64) (*domain.RawPayload, error)

	// ProbeProducts returns the subset of ids that exist remotely.
	// Implementations split large lists into endpoint-sized chunks.
	ProbeProducts(ctx context.Context, ids []int64) ([]int64, error)

	// NewArrivals returns the IDs currently listed as new arrivals or upcoming.
	NewArrivals(ctx context.Context) ([]int64, error)

	// Strikes returns the number of ban signals received so far.
	Strikes() int
}
