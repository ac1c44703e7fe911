package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// Ensure CheckpointStore implements the interface.
var _ driven.CheckpointStore = (*CheckpointStore)(nil)

type scanKey struct {
	category domain.Category
	mode     domain.ScanMode
}

// CheckpointStore is an in-memory implementation of driven.CheckpointStore.
type CheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[scanKey]domain.Checkpoint
	deferred    map[scanKey]map[int64]struct{}
}

// NewCheckpointStore creates a new in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		checkpoints: make(map[scanKey]domain.Checkpoint),
		deferred:    make(map[scanKey]map[int64]struct{}),
	}
}

// Read returns the last committed checkpoint, or a zero cursor if none.
func (s *CheckpointStore) Read(_ context.Context, category domain.Category, mode domain.ScanMode) (domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[scanKey{category, mode}]
	if !ok {
		return domain.Checkpoint{Category: category, Mode: mode}, nil
	}
	return cp, nil
}

// Advance stores a checkpoint. The cursor never moves backwards.
func (s *CheckpointStore) Advance(_ context.Context, cp domain.Checkpoint) error {
	if cp.Cursor <= 0 {
		return fmt.Errorf("%w: checkpoint cursor %d", domain.ErrInvalidInput, cp.Cursor)
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	k := scanKey{cp.Category, cp.Mode}
	if prev, ok := s.checkpoints[k]; ok && cp.Cursor < prev.Cursor {
		return fmt.Errorf("%w: checkpoint %s/%s cannot move back to %d",
			domain.ErrInvalidInput, cp.Category, cp.Mode, cp.Cursor)
	}
	s.checkpoints[k] = cp
	return nil
}

// Reset clears the checkpoint after a completed pass.
func (s *CheckpointStore) Reset(_ context.Context, category domain.Category, mode domain.ScanMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, scanKey{category, mode})
	return nil
}

// Defer remembers IDs to retry first on the next scan.
func (s *CheckpointStore) Defer(_ context.Context, category domain.Category, mode domain.ScanMode, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := scanKey{category, mode}
	if s.deferred[k] == nil {
		s.deferred[k] = make(map[int64]struct{})
	}
	for _, id := range ids {
		s.deferred[k][id] = struct{}{}
	}
	return nil
}

// Deferred returns the remembered IDs, ascending.
func (s *CheckpointStore) Deferred(_ context.Context, category domain.Category, mode domain.ScanMode) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.deferred[scanKey{category, mode}])), nil
}

// ClearDeferred forgets IDs that were retried successfully.
func (s *CheckpointStore) ClearDeferred(_ context.Context, category domain.Category, mode domain.ScanMode, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.deferred[scanKey{category, mode}], id)
	}
	return nil
}
