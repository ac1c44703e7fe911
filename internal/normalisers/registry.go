package normalisers

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
	"github.com/custodia-labs/catalog-delta/internal/normalisers/build"
	"github.com/custodia-labs/catalog-delta/internal/normalisers/file"
	"github.com/custodia-labs/catalog-delta/internal/normalisers/price"
	"github.com/custodia-labs/catalog-delta/internal/normalisers/product"
	"github.com/custodia-labs/catalog-delta/internal/normalisers/rating"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry maps entity kinds to their normalisers.
type Registry struct {
	mu          sync.RWMutex
	normalisers map[domain.EntityKind]driven.Normaliser
}

// NewRegistry creates an empty normaliser registry.
func NewRegistry() *Registry {
	return &Registry{
		normalisers: make(map[domain.EntityKind]driven.Normaliser),
	}
}

// Defaults returns a registry holding a normaliser for every entity kind.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(product.New())
	r.Register(file.New())
	r.Register(build.New())
	r.Register(price.New())
	r.Register(rating.New())
	return r
}

// Register adds a normaliser, replacing any previous one of the same kind.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers[n.Kind()] = n
}

// Normalise dispatches the payload to the normaliser for its kind.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawPayload) ([]domain.Snapshot, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	n, ok := r.normalisers[raw.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no normaliser for %q", domain.ErrUnsupportedKind, raw.Kind)
	}
	return n.Normalise(ctx, raw)
}

// Kinds returns the registered entity kinds in storage order.
func (r *Registry) Kinds() []domain.EntityKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]domain.EntityKind, 0, len(r.normalisers))
	for _, k := range domain.AllKinds() {
		if _, ok := r.normalisers[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return slices.Clip(kinds)
}
