package domain

import (
	"fmt"
	"slices"
	"time"
)

// ScanMode selects which candidate IDs a scan walks.
type ScanMode string

// Available scan modes.
const (
	// ModeManual walks an explicit seed list.
	ModeManual ScanMode = "manual"

	// ModeFull walks the configured ID range, resuming from the checkpoint.
	ModeFull ScanMode = "full"

	// ModeUpdate re-checks IDs already known to storage.
	ModeUpdate ScanMode = "update"

	// ModeNew walks the remote new-arrival and upcoming listings.
	ModeNew ScanMode = "new"

	// ModeExtract derives file records from stored product data. No network.
	ModeExtract ScanMode = "extract"

	// ModeDelisted re-checks delisted IDs for relisting.
	ModeDelisted ScanMode = "delisted"

	// ModeProducts walks every known product ID for another category.
	ModeProducts ScanMode = "products"
)

// IsValid returns true if the mode is recognised.
func (m ScanMode) IsValid() bool {
	switch m {
	case ModeManual, ModeFull, ModeUpdate, ModeNew, ModeExtract, ModeDelisted, ModeProducts:
		return true
	default:
		return false
	}
}

// Checkpointed returns true if the mode persists a resumable cursor.
func (m ScanMode) Checkpointed() bool {
	return m == ModeFull || m == ModeUpdate
}

// String returns the string representation.
func (m ScanMode) String() string {
	return string(m)
}

// Category is a scan category. Each category scans one remote endpoint
// family and owns its checkpoints.
type Category string

// Scan categories.
const (
	CategoryProducts Category = "products"
	CategoryBuilds   Category = "builds"
	CategoryPrices   Category = "prices"
	CategoryRatings  Category = "ratings"
)

// AllCategories lists the scan categories in pipeline order.
func AllCategories() []Category {
	return []Category{CategoryProducts, CategoryBuilds, CategoryPrices, CategoryRatings}
}

// Kind returns the entity kind a category produces. Products in extract
// mode produce files instead, see KindFor.
func (c Category) Kind() EntityKind {
	switch c {
	case CategoryProducts:
		return KindProduct
	case CategoryBuilds:
		return KindBuild
	case CategoryPrices:
		return KindPrice
	case CategoryRatings:
		return KindRating
	default:
		return ""
	}
}

// KindFor returns the entity kind written by the category in the given mode.
func (c Category) KindFor(mode ScanMode) EntityKind {
	if c == CategoryProducts && mode == ModeExtract {
		return KindFile
	}
	return c.Kind()
}

// Modes lists the scan modes the category supports.
func (c Category) Modes() []ScanMode {
	switch c {
	case CategoryProducts:
		return []ScanMode{ModeManual, ModeFull, ModeUpdate, ModeNew, ModeExtract, ModeDelisted}
	case CategoryBuilds:
		return []ScanMode{ModeManual, ModeFull, ModeUpdate, ModeProducts, ModeDelisted}
	case CategoryPrices, CategoryRatings:
		return []ScanMode{ModeManual, ModeUpdate, ModeDelisted}
	default:
		return nil
	}
}

// Supports returns true if the category can run in the given mode.
func (c Category) Supports(mode ScanMode) bool {
	return slices.Contains(c.Modes(), mode)
}

// IsValid returns true if the category is recognised.
func (c Category) IsValid() bool {
	return c.Kind() != ""
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// ValidateScan checks a category and mode pair.
func ValidateScan(c Category, mode ScanMode) error {
	if !c.IsValid() {
		return fmt.Errorf("%w: category %q", ErrInvalidInput, c)
	}
	if !c.Supports(mode) {
		return fmt.Errorf("%w: %s does not support %q", ErrUnsupportedMode, c, mode)
	}
	return nil
}

// Checkpoint is the durable progress cursor of one category and mode.
// Cursor is the last product ID whose batch was committed.
type Checkpoint struct {
	Category  Category
	Mode      ScanMode
	Cursor    int64
	UpdatedAt time.Time
}

// IsZero returns true if no progress has been recorded.
func (c Checkpoint) IsZero() bool {
	return c.Cursor == 0
}

// Batch is an ordered slice of candidate IDs handed to the pool together.
type Batch struct {
	// IDs are the candidate product IDs in walk order.
	IDs []int64

	// Cursor is the checkpoint value once the batch has committed.
	// Zero means the batch does not advance the checkpoint.
	Cursor int64

	// Deferred marks a batch of IDs replayed from the deferred list.
	Deferred bool
}

// Outcome classifies what a unit of work did to storage.
type Outcome string

// Unit outcomes.
const (
	OutcomeAdded     Outcome = "added"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeDelisted  Outcome = "delisted"
	OutcomeRelisted  Outcome = "relisted"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// RunStatus is the terminal status of a scan run.
type RunStatus string

// Run statuses.
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped"
	RunFailed    RunStatus = "failed"
)

// ScanReport counts what a scan did.
type ScanReport struct {
	Processed int `json:"processed"`
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Delisted  int `json:"delisted"`
	Relisted  int `json:"relisted"`
	NotFound  int `json:"not_found"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Record counts one outcome.
func (r *ScanReport) Record(o Outcome) {
	switch o {
	case OutcomeAdded:
		r.Added++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeDelisted:
		r.Delisted++
	case OutcomeRelisted:
		r.Relisted++
	case OutcomeNotFound:
		r.NotFound++
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	}
}

// Changes returns the number of writes the scan made.
func (r ScanReport) Changes() int {
	return r.Added + r.Updated + r.Delisted + r.Relisted
}

// ScanRun is one invocation of a scan, kept as a ledger entry.
type ScanRun struct {
	ID         string
	Category   Category
	Mode       ScanMode
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Report     ScanReport
	Error      string
}
