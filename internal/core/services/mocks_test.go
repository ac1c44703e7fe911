package services

import (
	"context"
	"errors"
	"slices"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/catalog-delta/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockCatalog implements driven.CatalogClient. Responses are scripted per
// product ID; an ID without a script is not found.
type mockCatalog struct {
	mu       stdsync.Mutex
	fetch    map[int64]func(attempt int) error
	calls    map[int64]int
	existing []int64
	probeErr error
	arrivals []int64
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		fetch: make(map[int64]func(int) error),
		calls: make(map[int64]int),
	}
}

// found scripts ids to always succeed.
func (m *mockCatalog) found(ids ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.fetch[id] = func(int) error { return nil }
	}
}

// script sets the response of every attempt for id.
func (m *mockCatalog) script(id int64, fn func(attempt int) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetch[id] = fn
}

func (m *mockCatalog) Fetch(_ context.Context, kind domain.EntityKind, productID int64) (*domain.RawPayload, error) {
	m.mu.Lock()
	m.calls[productID]++
	attempt := m.calls[productID]
	fn, ok := m.fetch[productID]
	m.mu.Unlock()

	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := fn(attempt); err != nil {
		return nil, err
	}
	return &domain.RawPayload{Kind: kind, ProductID: productID, Country: "US"}, nil
}

func (m *mockCatalog) ProbeProducts(_ context.Context, ids []int64) ([]int64, error) {
	if m.probeErr != nil {
		return nil, m.probeErr
	}
	var out []int64
	for _, id := range ids {
		if slices.Contains(m.existing, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *mockCatalog) NewArrivals(_ context.Context) ([]int64, error) {
	return m.arrivals, nil
}

func (m *mockCatalog) Strikes() int { return 0 }

func (m *mockCatalog) callsFor(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

// mockRegistry implements driven.NormaliserRegistry with a function.
type mockRegistry struct {
	fn func(raw *domain.RawPayload) ([]domain.Snapshot, error)
}

func (m *mockRegistry) Normalise(_ context.Context, raw *domain.RawPayload) ([]domain.Snapshot, error) {
	return m.fn(raw)
}

func (m *mockRegistry) Register(driven.Normaliser) {}

func (m *mockRegistry) Kinds() []domain.EntityKind { return domain.AllKinds() }

// stubRegistry returns one snapshot of the payload's kind per product. The
// snapshot content follows a version string the test can change.
func stubRegistry(version *string) *mockRegistry {
	return &mockRegistry{fn: func(raw *domain.RawPayload) ([]domain.Snapshot, error) {
		id := raw.ProductID
		var snap domain.Snapshot
		switch raw.Kind {
		case domain.KindBuild:
			snap = &domain.BuildSnapshot{
				ProductID:     id,
				OS:            "windows",
				Branch:        domain.MainBranch,
				BuildCount:    1,
				LatestVersion: *version,
				VersionNames:  []string{*version},
			}
		case domain.KindPrice:
			snap = &domain.PriceSnapshot{ProductID: id, Country: "US", Currency: "USD", BasePrice: "9.99", FinalPrice: *version}
		case domain.KindRating:
			snap = &domain.RatingSnapshot{ProductID: id, ReviewCount: len(*version)}
		case domain.KindFile:
			snap = &domain.FileSnapshot{ProductID: id, FileID: "en1installer0", Type: domain.FileInstaller, Version: *version}
		default:
			snap = &domain.ProductSnapshot{ID: id, Name: "Game " + *version, Slug: "game"}
		}
		return []domain.Snapshot{snap}, nil
	}}
}

// fetcherFunc adapts a function to the Fetcher interface.
type fetcherFunc func(ctx context.Context, id int64) (*domain.RawPayload, error)

func (f fetcherFunc) Fetch(ctx context.Context, id int64) (*domain.RawPayload, error) {
	return f(ctx, id)
}

// failingRecordStore fails every write.
type failingRecordStore struct {
	*memory.RecordStore
}

func (s failingRecordStore) Atomic(context.Context, func(tx driven.RecordTx) error) error {
	return errors.New("disk full")
}

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func testSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.Threads = 2
	s.HTTP.MaxRetries = 2
	s.HTTP.RetryDelay = time.Millisecond
	s.HTTP.MaxStrikes = 3
	s.Full = domain.FullScanSettings{StartID: 1, StopID: 20, BatchSize: 10}
	return s
}

// seed stores the snapshots as current records.
func seed(t *testing.T, store driven.RecordStore, snaps ...domain.Snapshot) {
	t.Helper()
	err := store.Atomic(context.Background(), func(tx driven.RecordTx) error {
		for _, snap := range snaps {
			rec, err := domain.NewRecord(snap, testNow)
			if err != nil {
				return err
			}
			if err := tx.Insert(context.Background(), rec); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// delist marks the current record of each key delisted.
func delist(t *testing.T, store driven.RecordStore, keys ...domain.EntityKey) {
	t.Helper()
	err := store.Atomic(context.Background(), func(tx driven.RecordTx) error {
		for _, key := range keys {
			if err := tx.MarkDelisted(context.Background(), key, testNow); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}
