package price

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

func raw(body string) *domain.RawPayload {
	return &domain.RawPayload{
		Kind:      domain.KindPrice,
		ProductID: 2000000005,
		Country:   "us",
		Parts:     map[string][]byte{domain.PartPrices: []byte(body)},
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, domain.KindPrice, New().Kind())
}

func TestNormalise_Success(t *testing.T) {
	snaps, err := New().Normalise(context.Background(), raw(`{"_embedded":{"prices":[
		{"currency":{"code":"USD"},"basePrice":"1999 USD","finalPrice":"999 USD"},
		{"currency":{"code":"EUR"},"basePrice":"1799 EUR","finalPrice":"1799 EUR"}
	]}}`))
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	eur := snaps[0].(*domain.PriceSnapshot)
	usd := snaps[1].(*domain.PriceSnapshot)
	assert.Equal(t, domain.PriceKey(2000000005, "US", "EUR"), eur.Key())
	assert.Equal(t, "17.99", eur.FinalPrice)
	assert.Equal(t, "19.99", usd.BasePrice)
	assert.Equal(t, "9.99", usd.FinalPrice)
}

func TestNormalise_EmptyList(t *testing.T) {
	snaps, err := New().Normalise(context.Background(), raw(`{"_embedded":{"prices":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestNormalise_Errors(t *testing.T) {
	_, err := New().Normalise(context.Background(), raw(`{"_embedded":{"prices":[{"currency":{"code":"USD"},"basePrice":"abc USD","finalPrice":"1 USD"}]}}`))
	assert.ErrorIs(t, err, domain.ErrNormalise)

	_, err = New().Normalise(context.Background(), raw(`[`))
	assert.ErrorIs(t, err, domain.ErrNormalise)

	noCountry := raw(`{}`)
	noCountry.Country = ""
	_, err = New().Normalise(context.Background(), noCountry)
	assert.ErrorIs(t, err, domain.ErrNormalise)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1999 USD", "19.99", false},
		{"0 USD", "0.00", false},
		{"5", "0.05", false},
		{"123456 USD", "1234.56", false},
		{"1999 EUR", "", true},
		{"", "", true},
		{"x USD", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in, "USD")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}
