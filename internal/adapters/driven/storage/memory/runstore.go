package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.ScanRun
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]domain.ScanRun),
	}
}

// Start records a new running scan.
func (s *RunStore) Start(_ context.Context, run *domain.ScanRun) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

// Finish stores the terminal status, report and error of a run.
func (s *RunStore) Finish(_ context.Context, run *domain.ScanRun) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return domain.ErrNotFound
	}
	s.runs[run.ID] = *run
	return nil
}

// Get returns one run by ID.
func (s *RunStore) Get(_ context.Context, id string) (*domain.ScanRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

// List returns the most recent runs first.
func (s *RunStore) List(_ context.Context, limit int) ([]*domain.ScanRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := slices.SortedFunc(maps.Values(s.runs), func(a, b domain.ScanRun) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	out := make([]*domain.ScanRun, len(runs))
	for i := range runs {
		out[i] = &runs[i]
	}
	return out, nil
}
