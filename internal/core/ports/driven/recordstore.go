package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

// IDState filters known product IDs by their current lifecycle state.
type IDState int

const (
	// IDsListed selects IDs with at least one current, non-delisted record.
	IDsListed IDState = iota

	// IDsDelisted selects IDs whose current records are all delisted.
	IDsDelisted

	// IDsAll selects every ID with a current record.
	IDsAll
)

// IDFilter narrows KnownIDs.
type IDFilter struct {
	State IDState

	// After excludes IDs less than or equal to it.
	After int64
}

// ChangeCounts summarises the history written for one entity kind.
type ChangeCounts struct {
	Kind     domain.EntityKind
	Added    int
	Updated  int
	Delisted int
	Current  int
}

// RecordStore persists versioned records.
// Reads may run concurrently; every write goes through Atomic.
type RecordStore interface {
	// GetCurrent returns the current record of a key or domain.ErrNotFound.
	GetCurrent(ctx context.Context, key domain.EntityKey) (*domain.VersionedRecord, error)

	// ListCurrent returns the current records inside a scope.
	ListCurrent(ctx context.Context, scope domain.Scope) ([]*domain.VersionedRecord, error)

	// History returns every record inside a scope, current or not, grouped
	// by key with the oldest version of each key first.
	History(ctx context.Context, scope domain.Scope) ([]*domain.VersionedRecord, error)

	// KnownIDs returns distinct product IDs of the kind, ascending.
	KnownIDs(ctx context.Context, kind domain.EntityKind, filter IDFilter) ([]int64, error)

	// CountChanges summarises rows added, superseded and delisted since a time.
	CountChanges(ctx context.Context, kind domain.EntityKind, since time.Time) (ChangeCounts, error)

	// Atomic runs fn in one transaction. Either every write of fn commits or
	// none does.
	Atomic(ctx context.Context, fn func(tx RecordTx) error) error
}

// RecordTx is the write view of a RecordStore inside one transaction.
type RecordTx interface {
	// GetCurrent returns the current record of a key or domain.ErrNotFound.
	GetCurrent(ctx context.Context, key domain.EntityKey) (*domain.VersionedRecord, error)

	// ListCurrent returns the current records inside a scope.
	ListCurrent(ctx context.Context, scope domain.Scope) ([]*domain.VersionedRecord, error)

	// Insert stores a new current record. It fails if the key already has one.
	Insert(ctx context.Context, rec *domain.VersionedRecord) error

	// Supersede closes the current record of a key.
	Supersede(ctx context.Context, key domain.EntityKey, at time.Time) error

	// MarkDelisted sets delisted_at on the current record of a key.
	MarkDelisted(ctx context.Context, key domain.EntityKey, at time.Time) error

	// ClearDelisted clears delisted_at on the current record of a key.
	ClearDelisted(ctx context.Context, key domain.EntityKey) error
}
