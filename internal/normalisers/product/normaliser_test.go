package product

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

const samplePayload = `{
	"id": 2000000001,
	"title": "  Sample Game ",
	"slug": "sample_game",
	"game_type": "game",
	"release_date": "2024-02-01T00:00:00+0200",
	"is_secret": false,
	"is_installable": true,
	"is_pre_order": false,
	"in_development": {"active": true, "until": null},
	"languages": {"fr": "français", "en": "English"},
	"links": {"product_card": "https://www.gog.com/game/sample_game", "support": "https://www.gog.com/support/sample_game", "forum": "https://www.gog.com/forum/sample_game"},
	"description": {"lead": "", "full": "<p>A \u0092fine\u0092 game.</p>"},
	"changelog": "<h4>1.1</h4><ul><li>Fixed saves</li></ul>",
	"downloads": {
		"installers": [
			{"id": "installer_windows_en", "name": "Sample Game", "os": "windows", "language": "en", "version": "1.1", "total_size": 2048, "files": [{"id": "en1installer1"}, {"id": "en1installer0"}]},
			{"id": "installer_linux_en", "name": "Sample Game", "os": "linux", "language": "en", "version": null, "total_size": 1024, "files": [{"id": "en3installer0"}]}
		],
		"patches": [
			{"id": 17, "name": "Sample Game Patch", "os": "windows", "language": "en", "version": "1.0 -> 1.1", "total_size": 12, "files": [{"id": "en1patch0"}]}
		]
	}
}`

func normalise(t *testing.T, body string) (*domain.ProductSnapshot, error) {
	t.Helper()
	raw := &domain.RawPayload{
		Kind:      domain.KindProduct,
		ProductID: 2000000001,
		Parts:     map[string][]byte{domain.PartProduct: []byte(body)},
	}
	snaps, err := New().Normalise(context.Background(), raw)
	if err != nil {
		return nil, err
	}
	require.Len(t, snaps, 1)
	return snaps[0].(*domain.ProductSnapshot), nil
}

func TestKind(t *testing.T) {
	assert.Equal(t, domain.KindProduct, New().Kind())
}

func TestNormalise_Success(t *testing.T) {
	snap, err := normalise(t, samplePayload)
	require.NoError(t, err)

	assert.Equal(t, "Sample Game", snap.Name)
	assert.Equal(t, "GAME", snap.ProductType)
	assert.True(t, snap.InDevelop)
	assert.Equal(t, []string{"en: English", "fr: français"}, snap.Languages)
	assert.Equal(t, "A fine game.", snap.Description)
	assert.Contains(t, snap.Changelog, "Fixed saves")
	assert.NotContains(t, snap.Changelog, "<li>")

	want := []domain.FileEntry{
		{ID: "installer_linux_en", Type: domain.FileInstaller, Name: "Sample Game", OS: "linux", Language: "en", TotalSize: 1024, Parts: []string{"en3installer0"}},
		{ID: "installer_windows_en", Type: domain.FileInstaller, Name: "Sample Game", OS: "windows", Language: "en", Version: "1.1", TotalSize: 2048, Parts: []string{"en1installer0", "en1installer1"}},
	}
	if diff := cmp.Diff(want, snap.Installers); diff != "" {
		t.Errorf("installers mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, snap.Patches, 1)
	assert.Equal(t, "17", snap.Patches[0].ID)
	assert.Equal(t, domain.FilePatch, snap.Patches[0].Type)
}

func TestNormalise_KeyOrderDoesNotChangeFingerprint(t *testing.T) {
	a, err := normalise(t, `{"id":2000000001,"title":"G","languages":{"en":"English","de":"Deutsch"}}`)
	require.NoError(t, err)
	b, err := normalise(t, `{"languages":{"de":"Deutsch","en":"English"},"title":"G","id":2000000001}`)
	require.NoError(t, err)

	fa, err := domain.Fingerprint(a)
	require.NoError(t, err)
	fb, err := domain.Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
}

func TestNormalise_OptionalFieldsMissing(t *testing.T) {
	snap, err := normalise(t, `{"id":2000000001,"title":"Bare","changelog":null,"description":null}`)
	require.NoError(t, err)

	assert.Empty(t, snap.Changelog)
	assert.Empty(t, snap.Description)
	assert.Nil(t, snap.Installers)
	assert.Nil(t, snap.Languages)
}

func TestNormalise_PlaceholderDescriptionDropped(t *testing.T) {
	snap, err := normalise(t, `{"id":2000000001,"title":"G","description":{"full":"product_description_2000000001"}}`)
	require.NoError(t, err)
	assert.Empty(t, snap.Description)
}

func TestNormalise_Errors(t *testing.T) {
	_, err := normalise(t, `{not json`)
	assert.ErrorIs(t, err, domain.ErrNormalise)

	_, err = normalise(t, `{"id": 5, "title": "Other"}`)
	assert.ErrorIs(t, err, domain.ErrNormalise)

	_, err = New().Normalise(context.Background(), &domain.RawPayload{ProductID: 1})
	assert.ErrorIs(t, err, domain.ErrNormalise)

	_, err = New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
