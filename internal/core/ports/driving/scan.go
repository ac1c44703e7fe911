package driving

import (
	"context"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

// Scanner runs scans for one category at a time.
type Scanner interface {
	// Run executes one scan and returns its report. An operator stop ends the
	// scan cleanly between units of work and is not an error.
	Run(ctx context.Context, req ScanRequest) (*domain.ScanReport, error)

	// Status returns the live status of a category.
	Status(ctx context.Context, category domain.Category) (*ScanStatus, error)
}

// ScanRequest selects what a scan walks.
type ScanRequest struct {
	Category domain.Category
	Mode     domain.ScanMode

	// IDs overrides the configured seed list in manual mode.
	IDs []int64

	// AllCurrencies tracks every currency in a price scan.
	AllCurrencies bool
}

// ScanStatus represents the current state of a scan.
type ScanStatus struct {
	// Category identifies the scan.
	Category domain.Category

	// Mode is the walker mode of the running scan.
	Mode domain.ScanMode

	// RunID identifies the scan run ledger entry.
	RunID string

	// Running indicates if a scan is currently in progress.
	Running bool

	// Cursor is the last committed checkpoint.
	Cursor int64

	// Report holds the counters so far.
	Report domain.ScanReport
}
