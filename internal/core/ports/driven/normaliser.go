package driven

import (
	"context"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

// Normaliser transforms raw payloads into canonical snapshots.
// Each normaliser handles exactly one entity kind.
type Normaliser interface {
	// Kind returns the entity kind this normaliser produces.
	Kind() domain.EntityKind

	// Normalise maps a payload to the snapshots it describes, with every
	// collection sorted. It returns domain.ErrNotFound when the payload is a
	// definitive absence and an error wrapping domain.ErrNormalise when the
	// payload cannot be parsed.
	Normalise(ctx context.Context, raw *domain.RawPayload) ([]domain.Snapshot, error)
}
