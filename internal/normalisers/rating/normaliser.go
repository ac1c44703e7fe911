package rating

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles product ratings.
type Normaliser struct{}

// New creates a new rating normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Kind returns the entity kind this normaliser produces.
func (n *Normaliser) Kind() domain.EntityKind {
	return domain.KindRating
}

type reviews struct {
	Pages        int  `json:"pages"`
	ReviewCount  int  `json:"reviewCount"`
	IsReviewable bool `json:"isReviewable"`
}

type average struct {
	Value *float64 `json:"value"`
	Count int      `json:"count"`
}

// Normalise converts the rating responses into a single snapshot.
// A product without review pages has no rating and yields domain.ErrNotFound.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawPayload) ([]domain.Snapshot, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	body, ok := raw.Part(domain.PartReviews)
	if !ok {
		return nil, fmt.Errorf("%w: rating of %d: no reviews payload", domain.ErrNormalise, raw.ProductID)
	}

	var r reviews
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: rating of %d: %w", domain.ErrNormalise, raw.ProductID, err)
	}
	if r.Pages == 0 {
		return nil, fmt.Errorf("rating of %d: %w", raw.ProductID, domain.ErrNotFound)
	}

	snap := &domain.RatingSnapshot{
		ProductID:    raw.ProductID,
		ReviewCount:  r.ReviewCount,
		IsReviewable: r.IsReviewable,
	}

	avg, err := decodeAverage(raw, domain.PartAverage)
	if err != nil {
		return nil, err
	}
	snap.AvgRating, snap.AvgRatingCount = avg.Value, avg.Count

	verified, err := decodeAverage(raw, domain.PartVerified)
	if err != nil {
		return nil, err
	}
	snap.AvgVerified, snap.AvgVerifiedCount = verified.Value, verified.Count

	return []domain.Snapshot{snap}, nil
}

// decodeAverage reads an optional average-rating part. A missing part is an
// empty average.
func decodeAverage(raw *domain.RawPayload, part string) (average, error) {
	var a average
	body, ok := raw.Part(part)
	if !ok || len(body) == 0 {
		return a, nil
	}
	if err := json.Unmarshal(body, &a); err != nil {
		return a, fmt.Errorf("%w: rating of %d (%s): %w", domain.ErrNormalise, raw.ProductID, part, err)
	}
	return a, nil
}
