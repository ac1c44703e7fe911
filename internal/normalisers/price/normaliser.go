package price

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// minorUnitExponent converts minor units into the major unit.
const minorUnitExponent = -2

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles price quotes.
type Normaliser struct{}

// New creates a new price normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Kind returns the entity kind this normaliser produces.
func (n *Normaliser) Kind() domain.EntityKind {
	return domain.KindPrice
}

type payload struct {
	Embedded struct {
		Prices []struct {
			Currency struct {
				Code string `json:"code"`
			} `json:"currency"`
			BasePrice  string `json:"basePrice"`
			FinalPrice string `json:"finalPrice"`
		} `json:"prices"`
	} `json:"_embedded"`
}

// Normalise converts a price payload into one snapshot per currency, sorted
// by currency. An empty price list yields no snapshots.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawPayload) ([]domain.Snapshot, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	body, ok := raw.Part(domain.PartPrices)
	if !ok {
		return nil, fmt.Errorf("%w: prices of %d: no price payload", domain.ErrNormalise, raw.ProductID)
	}
	if raw.Country == "" {
		return nil, fmt.Errorf("%w: prices of %d: no country", domain.ErrNormalise, raw.ProductID)
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: prices of %d: %w", domain.ErrNormalise, raw.ProductID, err)
	}

	snaps := make([]*domain.PriceSnapshot, 0, len(p.Embedded.Prices))
	for _, q := range p.Embedded.Prices {
		currency := strings.ToUpper(strings.TrimSpace(q.Currency.Code))
		if currency == "" {
			continue
		}
		base, err := ParseAmount(q.BasePrice, currency)
		if err != nil {
			return nil, fmt.Errorf("%w: prices of %d: %w", domain.ErrNormalise, raw.ProductID, err)
		}
		final, err := ParseAmount(q.FinalPrice, currency)
		if err != nil {
			return nil, fmt.Errorf("%w: prices of %d: %w", domain.ErrNormalise, raw.ProductID, err)
		}
		snaps = append(snaps, &domain.PriceSnapshot{
			ProductID:  raw.ProductID,
			Country:    strings.ToUpper(raw.Country),
			Currency:   currency,
			BasePrice:  base.StringFixed(2),
			FinalPrice: final.StringFixed(2),
		})
	}
	slices.SortFunc(snaps, func(a, b *domain.PriceSnapshot) int { return strings.Compare(a.Currency, b.Currency) })
	snaps = slices.CompactFunc(snaps, func(a, b *domain.PriceSnapshot) bool { return a.Currency == b.Currency })

	out := make([]domain.Snapshot, len(snaps))
	for i, s := range snaps {
		out[i] = s
	}
	return out, nil
}

// ParseAmount parses a minor-unit amount such as "1999 USD" into 19.99.
// The currency suffix, when present, must match the quote's currency.
func ParseAmount(s, currency string) (decimal.Decimal, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return decimal.Zero, fmt.Errorf("malformed amount %q", s)
	}
	if len(fields) == 2 && !strings.EqualFold(fields[1], currency) {
		return decimal.Zero, fmt.Errorf("amount %q is not in %s", s, currency)
	}

	minor, err := decimal.NewFromString(fields[0])
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", s, err)
	}
	return minor.Shift(minorUnitExponent), nil
}
