package file

import (
	"context"
	"fmt"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles file extraction.
type Normaliser struct{}

// New creates a new file normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Kind returns the entity kind this normaliser produces.
func (n *Normaliser) Kind() domain.EntityKind {
	return domain.KindFile
}

// Normalise decodes the encoded product snapshot held in the product part
// and returns one file snapshot per installer and patch. A product without
// downloads yields no snapshots.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawPayload) ([]domain.Snapshot, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	body, ok := raw.Part(domain.PartProduct)
	if !ok {
		return nil, fmt.Errorf("%w: files of %d: no product snapshot", domain.ErrNormalise, raw.ProductID)
	}

	decoded, err := domain.DecodeSnapshot(domain.KindProduct, body)
	if err != nil {
		return nil, fmt.Errorf("%w: files of %d: %w", domain.ErrNormalise, raw.ProductID, err)
	}
	product := decoded.(*domain.ProductSnapshot)

	snaps := make([]domain.Snapshot, 0, len(product.Installers)+len(product.Patches))
	for _, group := range [][]domain.FileEntry{product.Installers, product.Patches} {
		for _, e := range group {
			if e.ID == "" {
				continue
			}
			snaps = append(snaps, &domain.FileSnapshot{
				ProductID: product.ID,
				FileID:    e.ID,
				Type:      e.Type,
				Name:      e.Name,
				OS:        e.OS,
				Language:  e.Language,
				Version:   e.Version,
				TotalSize: e.TotalSize,
				Parts:     e.Parts,
			})
		}
	}
	return snaps, nil
}
