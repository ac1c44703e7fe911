package services

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
	"github.com/custodia-labs/catalog-delta/internal/logger"
)

// Plan selects what a walk emits.
type Plan struct {
	Category domain.Category
	Mode     domain.ScanMode

	// IDs overrides the configured seed list in manual mode.
	IDs []int64
}

// Walker produces candidate ID batches for a scan. It reads checkpoints
// but never writes them; a batch carries the cursor to commit once its
// writes are durable.
type Walker struct {
	records     driven.RecordStore
	checkpoints driven.CheckpointStore
	catalog     driven.CatalogClient
	settings    domain.Settings
}

// NewWalker creates a walker. catalog is only used by the new-arrival walk
// and may be nil otherwise.
func NewWalker(
	records driven.RecordStore,
	checkpoints driven.CheckpointStore,
	catalog driven.CatalogClient,
	settings domain.Settings,
) *Walker {
	return &Walker{
		records:     records,
		checkpoints: checkpoints,
		catalog:     catalog,
		settings:    settings,
	}
}

// Batches lazily yields the batches of a plan. Deferred IDs of the same
// category and mode come first, in their own batches. Iteration stops at the
// first error, which is yielded with a zero batch.
func (w *Walker) Batches(ctx context.Context, plan Plan) iter.Seq2[domain.Batch, error] {
	return func(yield func(domain.Batch, error) bool) {
		if err := domain.ValidateScan(plan.Category, plan.Mode); err != nil {
			yield(domain.Batch{}, err)
			return
		}

		deferred, err := w.checkpoints.Deferred(ctx, plan.Category, plan.Mode)
		if err != nil {
			yield(domain.Batch{}, fmt.Errorf("read deferred ids: %w", err))
			return
		}
		if len(deferred) > 0 {
			logger.Info("Retrying %d deferred ids first", len(deferred))
		}
		for chunk := range slices.Chunk(deferred, w.settings.Full.BatchSize) {
			if !yield(domain.Batch{IDs: chunk, Deferred: true}, nil) {
				return
			}
		}

		switch plan.Mode {
		case domain.ModeFull:
			w.walkRange(ctx, plan, yield)
		case domain.ModeUpdate:
			w.walkKnown(ctx, plan, updateKind(plan.Category), driven.IDsListed, true, yield)
		case domain.ModeDelisted:
			w.walkKnown(ctx, plan, plan.Category.Kind(), driven.IDsDelisted, false, yield)
		case domain.ModeProducts, domain.ModeExtract:
			w.walkKnown(ctx, plan, domain.KindProduct, driven.IDsListed, false, yield)
		case domain.ModeNew:
			w.walkNew(ctx, yield)
		case domain.ModeManual:
			ids := plan.IDs
			if len(ids) == 0 {
				ids = w.settings.ManualIDs
			}
			w.emit(dedupe(ids), false, yield)
		}
	}
}

// updateKind is the kind whose listed IDs an update scan walks. Prices and
// ratings have no discovery mode of their own, so they follow the known
// products and pick up products added since the last scan.
func updateKind(c domain.Category) domain.EntityKind {
	switch c {
	case domain.CategoryPrices, domain.CategoryRatings:
		return domain.KindProduct
	default:
		return c.Kind()
	}
}

// walkRange walks [max(start, checkpoint+1), stop] in BatchSize steps,
// skipping dead zones. A batch never spans the start of a dead zone.
func (w *Walker) walkRange(ctx context.Context, plan Plan, yield func(domain.Batch, error) bool) {
	cp, err := w.checkpoints.Read(ctx, plan.Category, plan.Mode)
	if err != nil {
		yield(domain.Batch{}, fmt.Errorf("read checkpoint: %w", err))
		return
	}

	full := w.settings.Full
	next := max(full.StartID, cp.Cursor+1)
	if !cp.IsZero() {
		logger.Info("Resuming %s %s scan after id %d", plan.Category, plan.Mode, cp.Cursor)
	}

	for next <= full.StopID {
		if zone, ok := w.settings.InDeadZone(next); ok {
			logger.Debug("Skipping dead zone [%d, %d)", zone.From, zone.To)
			next = zone.To
			continue
		}

		end := min(next+int64(full.BatchSize)-1, full.StopID)
		for _, zone := range full.DeadZones {
			if zone.From > next && zone.From <= end {
				end = zone.From - 1
			}
		}

		ids := make([]int64, 0, end-next+1)
		for id := next; id <= end; id++ {
			ids = append(ids, id)
		}
		if !yield(domain.Batch{IDs: ids, Cursor: end}, nil) {
			return
		}
		next = end + 1
	}
}

// walkKnown emits IDs already present in storage. Checkpointed walks resume
// after the stored cursor and carry cursors on every batch.
func (w *Walker) walkKnown(
	ctx context.Context,
	plan Plan,
	kind domain.EntityKind,
	state driven.IDState,
	checkpointed bool,
	yield func(domain.Batch, error) bool,
) {
	filter := driven.IDFilter{State: state}
	if checkpointed {
		cp, err := w.checkpoints.Read(ctx, plan.Category, plan.Mode)
		if err != nil {
			yield(domain.Batch{}, fmt.Errorf("read checkpoint: %w", err))
			return
		}
		filter.After = cp.Cursor
		if !cp.IsZero() {
			logger.Info("Resuming %s %s scan after id %d", plan.Category, plan.Mode, cp.Cursor)
		}
	}

	ids, err := w.records.KnownIDs(ctx, kind, filter)
	if err != nil {
		yield(domain.Batch{}, fmt.Errorf("list known ids: %w", err))
		return
	}
	logger.Info("Found %d known %s ids", len(ids), kind)
	w.emit(ids, checkpointed, yield)
}

// walkNew emits the IDs on the remote new-arrival and upcoming listings.
func (w *Walker) walkNew(ctx context.Context, yield func(domain.Batch, error) bool) {
	if w.catalog == nil {
		yield(domain.Batch{}, fmt.Errorf("%w: new-arrival walk needs a catalog client", domain.ErrInvalidInput))
		return
	}
	ids, err := w.catalog.NewArrivals(ctx)
	if err != nil {
		yield(domain.Batch{}, fmt.Errorf("list new arrivals: %w", err))
		return
	}
	logger.Info("Found %d new arrival ids", len(ids))
	w.emit(dedupe(ids), false, yield)
}

func (w *Walker) emit(ids []int64, withCursor bool, yield func(domain.Batch, error) bool) {
	for chunk := range slices.Chunk(ids, w.settings.Full.BatchSize) {
		batch := domain.Batch{IDs: chunk}
		if withCursor {
			batch.Cursor = chunk[len(chunk)-1]
		}
		if !yield(batch, nil) {
			return
		}
	}
}

// dedupe drops repeated and non-positive IDs, keeping first occurrences in order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
