package driven

import (
	"context"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

// NormaliserRegistry selects the normaliser for a payload by entity kind.
type NormaliserRegistry interface {
	// Normalise transforms a raw payload using the normaliser for its kind.
	Normalise(ctx context.Context, raw *domain.RawPayload) ([]domain.Snapshot, error)

	// Register adds a normaliser, replacing any previous one of the same kind.
	Register(normaliser Normaliser)

	// Kinds returns the entity kinds that can be normalised.
	Kinds() []domain.EntityKind
}
