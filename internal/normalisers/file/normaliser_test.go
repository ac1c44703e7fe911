package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

func payloadFor(t *testing.T, p *domain.ProductSnapshot) *domain.RawPayload {
	t.Helper()
	body, err := domain.EncodeSnapshot(p)
	require.NoError(t, err)
	return &domain.RawPayload{
		Kind:      domain.KindFile,
		ProductID: p.ID,
		Parts:     map[string][]byte{domain.PartProduct: body},
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, domain.KindFile, New().Kind())
}

func TestNormalise_DerivesFiles(t *testing.T) {
	product := &domain.ProductSnapshot{
		ID:   7,
		Name: "Game",
		Installers: []domain.FileEntry{
			{ID: "installer_windows_en", Type: domain.FileInstaller, OS: "windows", Language: "en", Version: "1.1", TotalSize: 10},
		},
		Patches: []domain.FileEntry{
			{ID: "17", Type: domain.FilePatch, OS: "windows", Language: "en", Version: "1.0 -> 1.1", TotalSize: 1},
		},
	}

	snaps, err := New().Normalise(context.Background(), payloadFor(t, product))
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	first := snaps[0].(*domain.FileSnapshot)
	assert.Equal(t, domain.FileKey(7, "installer_windows_en"), first.Key())
	assert.Equal(t, "1.1", first.Version)
	assert.Equal(t, domain.FilePatch, snaps[1].(*domain.FileSnapshot).Type)
}

func TestNormalise_NoDownloads(t *testing.T) {
	snaps, err := New().Normalise(context.Background(), payloadFor(t, &domain.ProductSnapshot{ID: 7}))
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestNormalise_Errors(t *testing.T) {
	_, err := New().Normalise(context.Background(), &domain.RawPayload{ProductID: 7})
	assert.ErrorIs(t, err, domain.ErrNormalise)

	_, err = New().Normalise(context.Background(), &domain.RawPayload{
		ProductID: 7,
		Parts:     map[string][]byte{domain.PartProduct: []byte("nope")},
	})
	assert.ErrorIs(t, err, domain.ErrNormalise)
}
