package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// HistoryService reads stored history and the run ledger.
type HistoryService struct {
	records driven.RecordStore
	runs    driven.RunStore
}

// NewHistoryService creates a history service.
func NewHistoryService(records driven.RecordStore, runs driven.RunStore) *HistoryService {
	return &HistoryService{records: records, runs: runs}
}

// History returns every version of every entity of a kind for a product.
func (s *HistoryService) History(
	ctx context.Context,
	kind domain.EntityKind,
	productID int64,
) ([]driving.KeyHistory, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, kind)
	}
	if productID <= 0 {
		return nil, fmt.Errorf("%w: product id %d", domain.ErrInvalidInput, productID)
	}

	recs, err := s.records.History(ctx, domain.ScopeOf(kind, productID))
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var out []driving.KeyHistory
	for _, rec := range recs {
		if n := len(out); n > 0 && out[n-1].Key == rec.Key {
			out[n-1].Versions = append(out[n-1].Versions, rec)
			continue
		}
		out = append(out, driving.KeyHistory{Key: rec.Key, Versions: []*domain.VersionedRecord{rec}})
	}
	return out, nil
}

// Stats summarises changes per kind since the cutoff.
func (s *HistoryService) Stats(ctx context.Context, since time.Time) ([]driven.ChangeCounts, error) {
	out := make([]driven.ChangeCounts, 0, len(domain.AllKinds()))
	for _, kind := range domain.AllKinds() {
		counts, err := s.records.CountChanges(ctx, kind, since)
		if err != nil {
			return nil, fmt.Errorf("count %s changes: %w", kind, err)
		}
		out = append(out, counts)
	}
	return out, nil
}

// Runs lists the most recent scan runs.
func (s *HistoryService) Runs(ctx context.Context, limit int) ([]*domain.ScanRun, error) {
	return s.runs.List(ctx, limit)
}
