package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

// RateLimitError represents a ban signal from the remote service.
type RateLimitError struct {
	StatusCode int
	URL        string
	Strikes    int
	ResumeAt   time.Time

	// Blocked is set once the strike budget is spent.
	Blocked bool
}

func (e *RateLimitError) Error() string {
	if e.Blocked {
		return fmt.Sprintf("catalog: blocked after %d strikes (status %d, URL: %s)", e.Strikes, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("catalog: rate limited (status %d, strike %d), resumes at %s",
		e.StatusCode, e.Strikes, e.ResumeAt.Format(time.RFC3339))
}

// Unwrap maps the error onto the domain sentinels.
func (e *RateLimitError) Unwrap() error {
	if e.Blocked {
		return domain.ErrBlocked
	}
	return domain.ErrRateLimited
}

// APIError represents an unexpected or not-found response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string

	// NotFound is set when the status definitively reports absence for the
	// endpoint that was called.
	NotFound bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap maps the error onto the domain sentinels.
func (e *APIError) Unwrap() error {
	if e.NotFound {
		return domain.ErrNotFound
	}
	return domain.ErrTransient
}

// IsNotFound checks if the error indicates the entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// IsRateLimited checks if the error is a ban signal.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsBlocked checks if the strike budget is spent.
func IsBlocked(err error) bool {
	return errors.Is(err, domain.ErrBlocked)
}

// IsTransient checks if the error is worth retrying with backoff.
func IsTransient(err error) bool {
	return err != nil && !IsNotFound(err) && !IsRateLimited(err) && !IsBlocked(err)
}
