package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// Extractor feeds stored product snapshots to the file normaliser.
// It makes no network requests.
type Extractor struct {
	records driven.RecordStore
}

// NewExtractor creates an extractor reading from records.
func NewExtractor(records driven.RecordStore) *Extractor {
	return &Extractor{records: records}
}

// Fetch returns the current product snapshot of id as a file payload.
// A product that is unknown or delisted is reported as not found, so its
// files are delisted too.
func (x *Extractor) Fetch(ctx context.Context, productID int64) (*domain.RawPayload, error) {
	rec, err := x.records.GetCurrent(ctx, domain.ProductKey(productID))
	if err != nil {
		return nil, err
	}
	if rec.DelistedAt != nil {
		return nil, fmt.Errorf("product %d is delisted: %w", productID, domain.ErrNotFound)
	}

	body, err := domain.EncodeSnapshot(rec.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode product %d: %w", productID, err)
	}
	return &domain.RawPayload{
		Kind:      domain.KindFile,
		ProductID: productID,
		Parts:     map[string][]byte{domain.PartProduct: body},
	}, nil
}
