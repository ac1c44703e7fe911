package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driving"
	"github.com/custodia-labs/catalog-delta/internal/logger"
)

// Ensure ScanOrchestrator implements the interface.
var _ driving.Scanner = (*ScanOrchestrator)(nil)

// ScanOrchestrator runs scans: it walks candidate IDs, fans them out to the
// worker pool and applies every result through a single writer.
type ScanOrchestrator struct {
	records     driven.RecordStore
	checkpoints driven.CheckpointStore
	runs        driven.RunStore
	catalog     driven.CatalogClient
	registry    driven.NormaliserRegistry
	settings    domain.Settings
	delta       *DeltaEngine

	now   func() time.Time
	sleep func(time.Duration)

	// Status tracking
	mu     sync.RWMutex
	active map[domain.Category]*driving.ScanStatus
}

// NewScanOrchestrator creates a scan orchestrator.
// The catalog client may be nil when only extract scans are run.
func NewScanOrchestrator(
	records driven.RecordStore,
	checkpoints driven.CheckpointStore,
	runs driven.RunStore,
	catalog driven.CatalogClient,
	registry driven.NormaliserRegistry,
	settings domain.Settings,
) *ScanOrchestrator {
	return &ScanOrchestrator{
		records:     records,
		checkpoints: checkpoints,
		runs:        runs,
		catalog:     catalog,
		registry:    registry,
		settings:    settings,
		delta:       NewDeltaEngine(),
		now:         time.Now,
		sleep:       time.Sleep,
		active:      make(map[domain.Category]*driving.ScanStatus),
	}
}

// scan holds the state of one running scan.
type scan struct {
	run    *domain.ScanRun
	pool   *Pool
	report domain.ScanReport
}

// Run executes one scan. A cancelled ctx is an operator stop: units already
// started finish and are written, the partial batch does not move the
// checkpoint, and Run returns the report with a nil error.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *ScanOrchestrator) Run(ctx context.Context, req driving.ScanRequest) (*domain.ScanReport, error) {
	// 1. Validate the request
	if err := domain.ValidateScan(req.Category, req.Mode); err != nil {
		return nil, err
	}
	settings := o.settings
	if req.AllCurrencies {
		settings = settings.WithAllCurrencies()
	}

	kind := req.Category.KindFor(req.Mode)
	fetcher, err := o.fetcherFor(req.Mode, kind)
	if err != nil {
		return nil, err
	}

	// 2. Claim the category
	status := &driving.ScanStatus{Category: req.Category, Mode: req.Mode, Running: true}
	if err := o.claim(status); err != nil {
		return nil, err
	}
	defer o.clearStatus(req.Category)

	// 3. Record the run; ledger writes survive a stop
	ledger := context.WithoutCancel(ctx)
	run := &domain.ScanRun{
		ID:        uuid.NewString(),
		Category:  req.Category,
		Mode:      req.Mode,
		Status:    domain.RunRunning,
		StartedAt: o.now().UTC(),
	}
	if err := o.runs.Start(ledger, run); err != nil {
		return nil, fmt.Errorf("start scan run: %w", err)
	}
	o.updateStatus(req.Category, func(s *driving.ScanStatus) { s.RunID = run.ID })

	s := &scan{
		run:  run,
		pool: NewPool(fetcher, o.registry, kind, settings),
	}
	s.pool.sleep = o.sleep

	logger.Section(fmt.Sprintf("%s %s scan", req.Category, req.Mode))
	logger.Info("Starting %s scan in %s mode (run %s)", req.Category, req.Mode, run.ID)

	// 4. Walk and process batches
	walker := NewWalker(o.records, o.checkpoints, o.catalog, settings)
	plan := Plan{Category: req.Category, Mode: req.Mode, IDs: req.IDs}

	stopped := false
	for batch, err := range walker.Batches(ledger, plan) {
		if err != nil {
			return o.finish(ledger, s, err)
		}
		if ctx.Err() != nil {
			stopped = true
			break
		}
		complete, err := o.processBatch(ctx, s, batch)
		if err != nil {
			return o.finish(ledger, s, err)
		}
		if !complete {
			stopped = true
			break
		}
	}

	if stopped {
		logger.Warn("Scan stopped by operator")
		run.Status = domain.RunStopped
		return o.finish(ledger, s, nil)
	}

	// 5. A completed pass starts over next time
	if req.Mode.Checkpointed() {
		if err := o.checkpoints.Reset(ledger, req.Category, req.Mode); err != nil {
			return o.finish(ledger, s, fmt.Errorf("reset checkpoint: %w", err))
		}
	}
	run.Status = domain.RunCompleted
	return o.finish(ledger, s, nil)
}

// Status returns the live status of a category.
func (o *ScanOrchestrator) Status(_ context.Context, category domain.Category) (*driving.ScanStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.active[category]; ok {
		// Return a copy to avoid race conditions
		cp := *status
		return &cp, nil
	}

	// Not running - return idle status
	return &driving.ScanStatus{
		Category: category,
		Running:  false,
	}, nil
}

func (o *ScanOrchestrator) fetcherFor(mode domain.ScanMode, kind domain.EntityKind) (Fetcher, error) {
	if mode == domain.ModeExtract {
		return NewExtractor(o.records), nil
	}
	if o.catalog == nil {
		return nil, fmt.Errorf("%w: %s scans need a catalog client", domain.ErrInvalidInput, kind)
	}
	return catalogFetcher{client: o.catalog, kind: kind}, nil
}

// processBatch runs one batch through the pool and the writer. It returns
// false when a stop left the batch partially processed.
//
//nolint:gocognit // Pool, writer and checkpoint bookkeeping for one batch
func (o *ScanOrchestrator) processBatch(ctx context.Context, s *scan, batch domain.Batch) (bool, error) {
	ledger := context.WithoutCancel(ctx)
	ids, err := o.probe(ledger, s, batch.IDs)
	if err != nil {
		return false, err
	}

	// The pool stops handing out ids once a write has failed.
	poolCtx, stopPool := context.WithCancel(ctx)
	defer stopPool()

	results := make(chan Result)
	var (
		wg         sync.WaitGroup
		persistErr error
		failed     []int64
		succeeded  []int64
	)

	// Single writer: every storage write of the scan happens here.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for res := range results {
			if persistErr != nil {
				continue
			}
			if err := o.apply(ledger, s, res); err != nil {
				persistErr = err
				stopPool()
				continue
			}
			if res.Outcome == domain.OutcomeFailed {
				failed = append(failed, res.ProductID)
			} else {
				succeeded = append(succeeded, res.ProductID)
			}
		}
	}()

	processed, runErr := s.pool.Run(poolCtx, ids, results)
	close(results)
	wg.Wait()

	if persistErr != nil {
		logger.Error("Aborting scan, batch not committed: %v", persistErr)
		return false, persistErr
	}

	if len(failed) > 0 {
		if err := o.checkpoints.Defer(ledger, s.run.Category, s.run.Mode, failed); err != nil {
			return false, fmt.Errorf("defer failed ids: %w", err)
		}
	}
	if batch.Deferred && len(succeeded) > 0 {
		if err := o.checkpoints.ClearDeferred(ledger, s.run.Category, s.run.Mode, succeeded); err != nil {
			return false, fmt.Errorf("clear deferred ids: %w", err)
		}
	}

	if runErr != nil {
		return false, runErr
	}
	if processed < len(ids) {
		return false, nil
	}

	if batch.Cursor > 0 && s.run.Mode.Checkpointed() {
		cp := domain.Checkpoint{
			Category:  s.run.Category,
			Mode:      s.run.Mode,
			Cursor:    batch.Cursor,
			UpdatedAt: o.now().UTC(),
		}
		if err := o.checkpoints.Advance(ledger, cp); err != nil {
			return false, fmt.Errorf("advance checkpoint: %w", err)
		}
		o.updateStatus(s.run.Category, func(st *driving.ScanStatus) { st.Cursor = batch.Cursor })
		logger.Debug("Checkpoint %s/%s at %d", s.run.Category, s.run.Mode, batch.Cursor)
	}
	return true, nil
}

// probe narrows a full product batch to the IDs worth fetching: those the
// bulk listing returns, plus stored listed products it left out, so only a
// real not-found delists them. Unknown IDs missing from the listing are
// counted as not found without a fetch or a write. Other scans fetch every
// ID. A failed probe falls back to fetching every ID, unless the remote
// service blocked the scan.
func (o *ScanOrchestrator) probe(ctx context.Context, s *scan, ids []int64) ([]int64, error) {
	if s.run.Category != domain.CategoryProducts || s.run.Mode != domain.ModeFull || o.catalog == nil {
		return ids, nil
	}

	found, err := o.catalog.ProbeProducts(ctx, ids)
	if errors.Is(err, domain.ErrBlocked) {
		return nil, err
	}
	if err != nil {
		logger.Warn("Probe of %d ids failed, fetching each: %v", len(ids), err)
		return ids, nil
	}

	exists := make(map[int64]struct{}, len(found))
	for _, id := range found {
		exists[id] = struct{}{}
	}

	fetch := make([]int64, 0, len(found))
	dropped := 0
	for _, id := range ids {
		if _, ok := exists[id]; ok {
			fetch = append(fetch, id)
			continue
		}
		listed, err := o.listed(ctx, domain.ProductKey(id))
		if err != nil {
			return nil, err
		}
		if listed {
			logger.Debug("Probe missed stored product %d, fetching it", id)
			fetch = append(fetch, id)
			continue
		}
		s.report.Record(domain.OutcomeNotFound)
		s.report.Processed++
		dropped++
	}

	if dropped > 0 {
		report := s.report
		o.updateStatus(s.run.Category, func(st *driving.ScanStatus) { st.Report = report })
	}
	logger.Debug("Probe found %d of %d ids, fetching %d", len(found), len(ids), len(fetch))
	return fetch, nil
}

// listed reports whether key has a current record that is not delisted.
func (o *ScanOrchestrator) listed(ctx context.Context, key domain.EntityKey) (bool, error) {
	rec, err := o.records.GetCurrent(ctx, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: read %s: %w", domain.ErrPersistence, key, err)
	}
	return rec.DelistedAt == nil, nil
}

// apply writes one result in its own transaction and counts its outcomes.
func (o *ScanOrchestrator) apply(ctx context.Context, s *scan, res Result) error {
	var changes []Change

	switch res.Outcome {
	case domain.OutcomeFailed, domain.OutcomeSkipped:
		s.report.Record(res.Outcome)
	case domain.OutcomeNotFound:
		s.report.Record(res.Outcome)
		now := o.now()
		err := o.records.Atomic(ctx, func(tx driven.RecordTx) error {
			var err error
			changes, err = o.delta.ApplyNotFound(ctx, tx, res.Scope, now)
			return err
		})
		if err != nil {
			return persistence(res, err)
		}
	default:
		now := o.now()
		err := o.records.Atomic(ctx, func(tx driven.RecordTx) error {
			var err error
			changes, err = o.delta.ApplyScope(ctx, tx, res.Scope, res.Snapshots, now)
			return err
		})
		if err != nil {
			return persistence(res, err)
		}
	}

	for _, c := range changes {
		s.report.Record(c.Outcome)
	}
	s.report.Processed++
	logChanges(res.Worker, changes)

	report := s.report
	o.updateStatus(s.run.Category, func(st *driving.ScanStatus) { st.Report = report })
	return nil
}

func persistence(res Result, err error) error {
	if errors.Is(err, domain.ErrPersistence) {
		return fmt.Errorf("write %s: %w", res.Scope, err)
	}
	return fmt.Errorf("%w: write %s: %w", domain.ErrPersistence, res.Scope, err)
}

// finish closes the run ledger entry. A non-nil err marks the run failed.
func (o *ScanOrchestrator) finish(ctx context.Context, s *scan, err error) (*domain.ScanReport, error) {
	run := s.run
	finished := o.now().UTC()
	run.FinishedAt = &finished
	run.Report = s.report
	if err != nil {
		run.Status = domain.RunFailed
		run.Error = err.Error()
	}

	if ferr := o.runs.Finish(ctx, run); ferr != nil {
		logger.Error("Failed to record end of run %s: %v", run.ID, ferr)
		if err == nil {
			err = fmt.Errorf("finish scan run: %w", ferr)
		}
	}

	r := s.report
	logger.Info("Scan %s: %d processed, %d added, %d updated, %d delisted, %d relisted, %d failed",
		run.Status, r.Processed, r.Added, r.Updated, r.Delisted, r.Relisted, r.Failed)
	return &r, err
}

func (o *ScanOrchestrator) claim(status *driving.ScanStatus) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.active[status.Category]; ok {
		return fmt.Errorf("%w: %s", domain.ErrScanInProgress, status.Category)
	}
	o.active[status.Category] = status
	return nil
}

func (o *ScanOrchestrator) updateStatus(category domain.Category, fn func(*driving.ScanStatus)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.active[category]; ok {
		fn(status)
	}
}

// clearStatus removes the status of a finished scan.
func (o *ScanOrchestrator) clearStatus(category domain.Category) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, category)
}
