package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
	"github.com/custodia-labs/catalog-delta/internal/logger"
)

// Fetcher produces the raw payload of one unit of work.
type Fetcher interface {
	Fetch(ctx context.Context, productID int64) (*domain.RawPayload, error)
}

// catalogFetcher binds a catalog client to one entity kind.
type catalogFetcher struct {
	client driven.CatalogClient
	kind   domain.EntityKind
}

func (f catalogFetcher) Fetch(ctx context.Context, productID int64) (*domain.RawPayload, error) {
	return f.client.Fetch(ctx, f.kind, productID)
}

// Result is the outcome of one unit of work, handed to the single writer.
type Result struct {
	ProductID int64

	// Scope is the set of keys the snapshots are authoritative for.
	Scope domain.Scope

	// Snapshots is set when Outcome is empty; the writer decides the delta.
	Snapshots []domain.Snapshot

	// Outcome is set when no snapshots were produced: not found, failed or
	// skipped.
	Outcome domain.Outcome
	Err     error

	// Worker tags log lines, such as "W#03".
	Worker string
}

// Pool runs units of work on a fixed number of workers.
type Pool struct {
	fetcher  Fetcher
	registry driven.NormaliserRegistry
	kind     domain.EntityKind
	settings domain.Settings

	// sleep waits between retries. Replaced in tests.
	sleep func(time.Duration)
}

// NewPool creates a pool for one entity kind.
func NewPool(fetcher Fetcher, registry driven.NormaliserRegistry, kind domain.EntityKind, settings domain.Settings) *Pool {
	return &Pool{
		fetcher:  fetcher,
		registry: registry,
		kind:     kind,
		settings: settings,
		sleep:    time.Sleep,
	}
}

// Run processes ids and sends one Result per started unit to results.
// A cancelled ctx stops workers from starting new units; units already
// started run to completion. Run returns the number of units started and
// domain.ErrBlocked when the remote service blocked the scan. results is
// not closed.
func (p *Pool) Run(ctx context.Context, ids []int64, results chan<- Result) (int, error) {
	jobs := make(chan int64)
	workers := min(p.settings.Threads, len(ids))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
		blockErr  error
	)

	// abort tells the feeder to stop handing out ids once blocked.
	abort := make(chan struct{})
	var abortOnce sync.Once

	for w := range workers {
		wg.Add(1)
		go func(tag string) {
			defer wg.Done()
			for id := range jobs {
				// Stop is checked before each unit; a started unit is never cut.
				if ctx.Err() != nil {
					continue
				}
				select {
				case <-abort:
					continue
				default:
				}
				res := p.process(context.WithoutCancel(ctx), tag, id)

				mu.Lock()
				processed++
				if errors.Is(res.Err, domain.ErrBlocked) && blockErr == nil {
					blockErr = res.Err
				}
				mu.Unlock()

				if errors.Is(res.Err, domain.ErrBlocked) {
					abortOnce.Do(func() { close(abort) })
					continue
				}
				results <- res
			}
		}(fmt.Sprintf("W#%02d", w+1))
	}

feed:
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- id:
		case <-ctx.Done():
			break feed
		case <-abort:
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return processed, blockErr
}

// process fetches and normalises one product, retrying transient failures.
func (p *Pool) process(ctx context.Context, tag string, id int64) Result {
	res := Result{ProductID: id, Scope: domain.ScopeOf(p.kind, id), Worker: tag}

	raw, err := p.fetch(ctx, tag, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		res.Outcome = domain.OutcomeNotFound
		res.Scope = p.scope(id, nil)
		logger.Debug("%s %s %d not found", tag, p.kind, id)
		return res
	case errors.Is(err, domain.ErrBlocked):
		res.Err = err
		logger.Error("%s %s %d: %v", tag, p.kind, id, err)
		return res
	case err != nil:
		res.Outcome = domain.OutcomeFailed
		res.Err = err
		logger.Warn("%s %s %d failed, retry next scan: %v", tag, p.kind, id, err)
		return res
	}

	res.Scope = p.scope(id, raw)
	snaps, err := p.registry.Normalise(ctx, raw)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		res.Outcome = domain.OutcomeNotFound
		logger.Debug("%s %s %d not found", tag, p.kind, id)
		return res
	case err != nil:
		res.Outcome = domain.OutcomeSkipped
		res.Err = err
		logger.Warn("%s %s %d skipped: %v", tag, p.kind, id, err)
		return res
	}

	res.Snapshots = p.filter(snaps)
	return res
}

// fetch calls the fetcher until it succeeds, reports a definitive answer, or
// the retry budget is spent. Rate-limited attempts do not use the budget;
// the throttle already paused the pool and counts strikes.
func (p *Pool) fetch(ctx context.Context, tag string, id int64) (*domain.RawPayload, error) {
	attempt := 0
	strikes := 0
	for {
		raw, err := p.fetcher.Fetch(ctx, id)
		switch {
		case err == nil:
			return raw, nil
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrBlocked):
			return nil, err
		case errors.Is(err, domain.ErrRateLimited):
			strikes++
			if strikes > p.settings.HTTP.MaxStrikes {
				return nil, fmt.Errorf("%w: %w", domain.ErrBlocked, err)
			}
			logger.Debug("%s %s %d rate limited, retrying", tag, p.kind, id)
			continue
		}

		if attempt >= p.settings.HTTP.MaxRetries {
			return nil, fmt.Errorf("%w after %d attempts: %w", domain.ErrRetriesExhausted, attempt+1, err)
		}
		delay := p.backoff(attempt)
		attempt++
		logger.Debug("%s %s %d attempt %d failed, retrying in %s: %v", tag, p.kind, id, attempt, delay, err)
		p.sleep(delay)
	}
}

// fallbackMaxDelay bounds backoff when no maximum delay is configured.
const fallbackMaxDelay = time.Hour

// backoff returns the jittered exponential delay before retry attempt+1.
// The delay doubles per attempt up to MaxDelay and never overflows.
func (p *Pool) backoff(attempt int) time.Duration {
	base := p.settings.HTTP.RetryDelay
	if base <= 0 {
		return 0
	}
	limit := p.settings.HTTP.MaxDelay
	if limit <= 0 {
		limit = fallbackMaxDelay
	}

	delay := base
	for range attempt {
		if delay >= limit {
			break
		}
		delay *= 2
	}
	delay = min(delay, limit)

	// Full jitter in [delay/2, delay).
	half := delay / 2
	return half + rand.N(delay-half)
}
