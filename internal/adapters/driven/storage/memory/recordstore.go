package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
// Transactions work on a copy of the records that replaces the live set on
// success, so a failed transaction leaves no trace.
type RecordStore struct {
	// writeMu serialises transactions.
	writeMu sync.Mutex

	mu      sync.RWMutex
	records []domain.VersionedRecord
	nextID  int64
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{}
}

// GetCurrent returns the current record of a key.
func (s *RecordStore) GetCurrent(_ context.Context, key domain.EntityKey) (*domain.VersionedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findCurrent(s.records, key)
}

// ListCurrent returns the current records inside a scope.
func (s *RecordStore) ListCurrent(_ context.Context, scope domain.Scope) ([]*domain.VersionedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectRecords(s.records, scope, true), nil
}

// History returns every record inside a scope, grouped by key, oldest first.
func (s *RecordStore) History(_ context.Context, scope domain.Scope) ([]*domain.VersionedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectRecords(s.records, scope, false), nil
}

// KnownIDs returns distinct product IDs of the kind, ascending.
func (s *RecordStore) KnownIDs(_ context.Context, kind domain.EntityKind, filter driven.IDFilter) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// listed counts the current, non-delisted records of each product.
	listed := make(map[int64]int)
	for i := range s.records {
		r := &s.records[i]
		if r.Key.Kind != kind || !r.IsCurrent() || r.Key.ProductID <= filter.After {
			continue
		}
		if _, ok := listed[r.Key.ProductID]; !ok {
			listed[r.Key.ProductID] = 0
		}
		if r.DelistedAt == nil {
			listed[r.Key.ProductID]++
		}
	}

	ids := make([]int64, 0, len(listed))
	for id, n := range listed {
		switch filter.State {
		case driven.IDsListed:
			if n > 0 {
				ids = append(ids, id)
			}
		case driven.IDsDelisted:
			if n == 0 {
				ids = append(ids, id)
			}
		case driven.IDsAll:
			ids = append(ids, id)
		default:
			return nil, fmt.Errorf("%w: id state %d", domain.ErrInvalidInput, filter.State)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// CountChanges summarises the history written since a time.
func (s *RecordStore) CountChanges(_ context.Context, kind domain.EntityKind, since time.Time) (driven.ChangeCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := driven.ChangeCounts{Kind: kind}
	seen := make(map[domain.EntityKey]bool)
	for i := range s.records {
		r := &s.records[i]
		if r.Key.Kind != kind {
			continue
		}
		if !seen[r.Key] && !r.AddedAt.Before(since) {
			counts.Added++
		}
		seen[r.Key] = true
		if r.SupersededAt != nil && !r.SupersededAt.Before(since) {
			counts.Updated++
		}
		if r.IsCurrent() {
			counts.Current++
			if r.DelistedAt != nil && !r.DelistedAt.Before(since) {
				counts.Delisted++
			}
		}
	}
	return counts, nil
}

// Atomic runs fn against a copy of the records and publishes the copy only
// if fn succeeds.
func (s *RecordStore) Atomic(_ context.Context, fn func(tx driven.RecordTx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	tx := &recordTx{records: slices.Clone(s.records), nextID: s.nextID}
	s.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.records, s.nextID = tx.records, tx.nextID
	s.mu.Unlock()
	return nil
}

// recordTx implements driven.RecordTx over a private copy of the records.
type recordTx struct {
	records []domain.VersionedRecord
	nextID  int64
}

// GetCurrent returns the current record of a key.
func (t *recordTx) GetCurrent(_ context.Context, key domain.EntityKey) (*domain.VersionedRecord, error) {
	return findCurrent(t.records, key)
}

// ListCurrent returns the current records inside a scope.
func (t *recordTx) ListCurrent(_ context.Context, scope domain.Scope) ([]*domain.VersionedRecord, error) {
	return selectRecords(t.records, scope, true), nil
}

// Insert stores a new current record and sets its ID.
func (t *recordTx) Insert(_ context.Context, rec *domain.VersionedRecord) error {
	if rec == nil || rec.Snapshot == nil {
		return domain.ErrInvalidInput
	}
	if err := rec.Key.Validate(); err != nil {
		return err
	}
	if rec.SupersededAt != nil {
		return fmt.Errorf("%w: inserting superseded %s", domain.ErrInvalidInput, rec.Key)
	}
	if currentIndex(t.records, rec.Key) >= 0 {
		return fmt.Errorf("%w: %s already has a current record", domain.ErrPersistence, rec.Key)
	}

	t.nextID++
	rec.ID = t.nextID
	t.records = append(t.records, *rec)
	return nil
}

// Supersede closes the current record of a key.
func (t *recordTx) Supersede(_ context.Context, key domain.EntityKey, at time.Time) error {
	i := currentIndex(t.records, key)
	if i < 0 {
		return fmt.Errorf("superseding %s: %w", key, domain.ErrNotFound)
	}
	at = at.UTC()
	t.records[i].SupersededAt = &at
	return nil
}

// MarkDelisted sets the delisted timestamp on the current record of a key.
func (t *recordTx) MarkDelisted(_ context.Context, key domain.EntityKey, at time.Time) error {
	i := currentIndex(t.records, key)
	if i < 0 {
		return fmt.Errorf("delisting %s: %w", key, domain.ErrNotFound)
	}
	at = at.UTC()
	t.records[i].DelistedAt = &at
	return nil
}

// ClearDelisted clears the delisted timestamp on the current record of a key.
func (t *recordTx) ClearDelisted(_ context.Context, key domain.EntityKey) error {
	i := currentIndex(t.records, key)
	if i < 0 {
		return fmt.Errorf("relisting %s: %w", key, domain.ErrNotFound)
	}
	t.records[i].DelistedAt = nil
	return nil
}

func currentIndex(records []domain.VersionedRecord, key domain.EntityKey) int {
	return slices.IndexFunc(records, func(r domain.VersionedRecord) bool {
		return r.Key == key && r.IsCurrent()
	})
}

func findCurrent(records []domain.VersionedRecord, key domain.EntityKey) (*domain.VersionedRecord, error) {
	i := currentIndex(records, key)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	rec := records[i]
	return &rec, nil
}

// selectRecords copies the records inside a scope, ordered by key then ID.
func selectRecords(records []domain.VersionedRecord, scope domain.Scope, currentOnly bool) []*domain.VersionedRecord {
	var out []*domain.VersionedRecord
	for i := range records {
		if !scope.Contains(records[i].Key) || (currentOnly && !records[i].IsCurrent()) {
			continue
		}
		rec := records[i]
		out = append(out, &rec)
	}
	slices.SortStableFunc(out, func(a, b *domain.VersionedRecord) int {
		if c := cmp.Compare(a.Key.String(), b.Key.String()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
