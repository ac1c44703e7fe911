package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

// Throttle paces requests for the whole worker pool and holds the shared
// cooldown state. All fields are guarded by mu.
type Throttle struct {
	mu            sync.Mutex
	bucket        *rate.Limiter
	floor         rate.Limit
	cooldown      time.Duration
	maxDelay      time.Duration
	maxStrikes    int
	strikes       int
	cooldownUntil time.Time
	now           func() time.Time
}

// NewThrottle creates a throttle from the HTTP settings. Delays that are not
// positive fall back to the defaults, so a ban always slows the pool down.
func NewThrottle(cfg domain.HTTPSettings) *Throttle {
	defaults := domain.DefaultSettings().HTTP
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaults.MaxDelay
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = min(defaults.Cooldown, maxDelay)
	}
	return &Throttle{
		bucket:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		floor:      rate.Every(maxDelay),
		cooldown:   cfg.Cooldown,
		maxDelay:   maxDelay,
		maxStrikes: cfg.MaxStrikes,
		now:        time.Now,
	}
}

// Wait blocks until the pool may issue its next request.
// It returns domain.ErrBlocked once the strike budget is spent.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.strikes > t.maxStrikes {
			t.mu.Unlock()
			return domain.ErrBlocked
		}
		pause := t.cooldownUntil.Sub(t.now())
		t.mu.Unlock()

		if pause <= 0 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}

	return t.bucket.Wait(ctx)
}

// RecordBan registers a ban signal. It extends the pool-wide cooldown and
// halves the request rate, both bounded by the maximum delay. The returned
// error is marked Blocked once the strike budget is spent.
func (t *Throttle) RecordBan(statusCode int, url string) *RateLimitError {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.strikes++
	if t.strikes > t.maxStrikes {
		return &RateLimitError{StatusCode: statusCode, URL: url, Strikes: t.strikes, Blocked: true}
	}

	pause := t.cooldown
	for i := 1; i < t.strikes && pause < t.maxDelay; i++ {
		pause *= 2
	}
	pause = min(pause, t.maxDelay)
	until := t.now().Add(pause)
	if until.After(t.cooldownUntil) {
		t.cooldownUntil = until
	}

	slower := t.bucket.Limit() / 2
	if slower < t.floor {
		slower = t.floor
	}
	t.bucket.SetLimit(slower)

	return &RateLimitError{StatusCode: statusCode, URL: url, Strikes: t.strikes, ResumeAt: t.cooldownUntil}
}

// Strikes returns the number of ban signals recorded.
func (t *Throttle) Strikes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.strikes
}

// Limit returns the current request rate.
func (t *Throttle) Limit() rate.Limit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bucket.Limit()
}

// CooldownUntil returns the end of the current cooldown.
func (t *Throttle) CooldownUntil() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cooldownUntil
}
