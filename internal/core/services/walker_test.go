package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/catalog-delta/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

func collect(t *testing.T, w *Walker, plan Plan) ([]domain.Batch, error) {
	t.Helper()
	var out []domain.Batch
	for batch, err := range w.Batches(context.Background(), plan) {
		if err != nil {
			return out, err
		}
		out = append(out, batch)
	}
	return out, nil
}

func TestWalker_FullSkipsDeadZones(t *testing.T) {
	settings := testSettings()
	settings.Full = domain.FullScanSettings{
		StartID:   1,
		StopID:    12,
		BatchSize: 4,
		DeadZones: []domain.IDRange{{From: 3, To: 6}},
	}
	w := NewWalker(memory.NewRecordStore(), memory.NewCheckpointStore(), nil, settings)

	batches, err := collect(t, w, Plan{Category: domain.CategoryBuilds, Mode: domain.ModeFull})
	require.NoError(t, err)

	assert.Equal(t, []domain.Batch{
		{IDs: []int64{1, 2}, Cursor: 2},
		{IDs: []int64{6, 7, 8, 9}, Cursor: 9},
		{IDs: []int64{10, 11, 12}, Cursor: 12},
	}, batches)
}

func TestWalker_FullResumesAfterCheckpoint(t *testing.T) {
	settings := testSettings()
	settings.Full = domain.FullScanSettings{StartID: 1, StopID: 12, BatchSize: 4}
	checkpoints := memory.NewCheckpointStore()
	require.NoError(t, checkpoints.Advance(context.Background(), domain.Checkpoint{
		Category: domain.CategoryProducts,
		Mode:     domain.ModeFull,
		Cursor:   7,
	}))
	w := NewWalker(memory.NewRecordStore(), checkpoints, nil, settings)

	batches, err := collect(t, w, Plan{Category: domain.CategoryProducts, Mode: domain.ModeFull})
	require.NoError(t, err)

	assert.Equal(t, []domain.Batch{
		{IDs: []int64{8, 9, 10, 11}, Cursor: 11},
		{IDs: []int64{12}, Cursor: 12},
	}, batches)
}

func TestWalker_FullDeadZoneCoversRemainder(t *testing.T) {
	settings := testSettings()
	settings.Full = domain.FullScanSettings{
		StartID:   1,
		StopID:    10,
		BatchSize: 5,
		DeadZones: []domain.IDRange{{From: 1, To: 100}},
	}
	w := NewWalker(memory.NewRecordStore(), memory.NewCheckpointStore(), nil, settings)

	batches, err := collect(t, w, Plan{Category: domain.CategoryProducts, Mode: domain.ModeFull})
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestWalker_ManualDeduplicates(t *testing.T) {
	settings := testSettings()
	settings.ManualIDs = []int64{9, 9, 8}
	w := NewWalker(memory.NewRecordStore(), memory.NewCheckpointStore(), nil, settings)

	batches, err := collect(t, w, Plan{Category: domain.CategoryRatings, Mode: domain.ModeManual})
	require.NoError(t, err)
	assert.Equal(t, []domain.Batch{{IDs: []int64{9, 8}}}, batches)

	batches, err = collect(t, w, Plan{
		Category: domain.CategoryRatings,
		Mode:     domain.ModeManual,
		IDs:      []int64{3, 1, 3, 0, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Batch{{IDs: []int64{3, 1, 2}}}, batches)
}

func TestWalker_DeferredFirst(t *testing.T) {
	ctx := context.Background()
	checkpoints := memory.NewCheckpointStore()
	require.NoError(t, checkpoints.Defer(ctx, domain.CategoryPrices, domain.ModeManual, []int64{50, 40}))
	settings := testSettings()
	settings.ManualIDs = []int64{7}
	w := NewWalker(memory.NewRecordStore(), checkpoints, nil, settings)

	batches, err := collect(t, w, Plan{Category: domain.CategoryPrices, Mode: domain.ModeManual})
	require.NoError(t, err)

	assert.Equal(t, []domain.Batch{
		{IDs: []int64{40, 50}, Deferred: true},
		{IDs: []int64{7}},
	}, batches)

	// The walker reads the deferred list but never clears it.
	deferred, err := checkpoints.Deferred(ctx, domain.CategoryPrices, domain.ModeManual)
	require.NoError(t, err)
	assert.Equal(t, []int64{40, 50}, deferred)
}

func TestWalker_KnownIDs(t *testing.T) {
	ctx := context.Background()
	records := memory.NewRecordStore()
	seed(t, records,
		&domain.ProductSnapshot{ID: 1, Name: "One"},
		&domain.ProductSnapshot{ID: 2, Name: "Two"},
		&domain.ProductSnapshot{ID: 3, Name: "Three"},
		&domain.RatingSnapshot{ProductID: 2},
	)
	delist(t, records, domain.ProductKey(3))

	checkpoints := memory.NewCheckpointStore()
	require.NoError(t, checkpoints.Advance(ctx, domain.Checkpoint{
		Category: domain.CategoryProducts,
		Mode:     domain.ModeUpdate,
		Cursor:   1,
	}))
	w := NewWalker(records, checkpoints, nil, testSettings())

	tests := []struct {
		name string
		plan Plan
		want []domain.Batch
	}{
		{
			name: "update resumes after checkpoint",
			plan: Plan{Category: domain.CategoryProducts, Mode: domain.ModeUpdate},
			want: []domain.Batch{{IDs: []int64{2}, Cursor: 2}},
		},
		{
			name: "ratings update follows listed products",
			plan: Plan{Category: domain.CategoryRatings, Mode: domain.ModeUpdate},
			want: []domain.Batch{{IDs: []int64{1, 2}, Cursor: 2}},
		},
		{
			name: "prices update follows listed products",
			plan: Plan{Category: domain.CategoryPrices, Mode: domain.ModeUpdate},
			want: []domain.Batch{{IDs: []int64{1, 2}, Cursor: 2}},
		},
		{
			name: "builds update walks stored builds",
			plan: Plan{Category: domain.CategoryBuilds, Mode: domain.ModeUpdate},
			want: nil,
		},
		{
			name: "ratings delisted re-check walks delisted ratings",
			plan: Plan{Category: domain.CategoryRatings, Mode: domain.ModeDelisted},
			want: nil,
		},
		{
			name: "delisted",
			plan: Plan{Category: domain.CategoryProducts, Mode: domain.ModeDelisted},
			want: []domain.Batch{{IDs: []int64{3}}},
		},
		{
			name: "products for builds",
			plan: Plan{Category: domain.CategoryBuilds, Mode: domain.ModeProducts},
			want: []domain.Batch{{IDs: []int64{1, 2}}},
		},
		{
			name: "extract",
			plan: Plan{Category: domain.CategoryProducts, Mode: domain.ModeExtract},
			want: []domain.Batch{{IDs: []int64{1, 2}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, err := collect(t, w, tt.plan)
			require.NoError(t, err)
			assert.Equal(t, tt.want, batches)
		})
	}
}

func TestWalker_NewArrivals(t *testing.T) {
	catalog := newMockCatalog()
	catalog.arrivals = []int64{5, 6, 5}
	w := NewWalker(memory.NewRecordStore(), memory.NewCheckpointStore(), catalog, testSettings())

	batches, err := collect(t, w, Plan{Category: domain.CategoryProducts, Mode: domain.ModeNew})
	require.NoError(t, err)
	assert.Equal(t, []domain.Batch{{IDs: []int64{5, 6}}}, batches)
}

func TestWalker_NewArrivalsWithoutCatalog(t *testing.T) {
	w := NewWalker(memory.NewRecordStore(), memory.NewCheckpointStore(), nil, testSettings())

	_, err := collect(t, w, Plan{Category: domain.CategoryProducts, Mode: domain.ModeNew})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWalker_UnsupportedMode(t *testing.T) {
	w := NewWalker(memory.NewRecordStore(), memory.NewCheckpointStore(), nil, testSettings())

	_, err := collect(t, w, Plan{Category: domain.CategoryPrices, Mode: domain.ModeFull})
	assert.ErrorIs(t, err, domain.ErrUnsupportedMode)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []int64{4, 2, 7}, dedupe([]int64{4, -1, 2, 4, 0, 7, 2}))
	assert.Empty(t, dedupe(nil))
}
