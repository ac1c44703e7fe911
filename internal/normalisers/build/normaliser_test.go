package build

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

func raw(parts map[string]string) *domain.RawPayload {
	p := &domain.RawPayload{Kind: domain.KindBuild, ProductID: 2000000001, Parts: map[string][]byte{}}
	for k, v := range parts {
		p.Parts[k] = []byte(v)
	}
	return p
}

func TestKind(t *testing.T) {
	assert.Equal(t, domain.KindBuild, New().Kind())
}

func TestNormalise_GroupsByBranch(t *testing.T) {
	snaps, err := New().Normalise(context.Background(), raw(map[string]string{
		"windows": `{"total_count":3,"count":3,"has_private_branches":true,"items":[
			{"build_id":"1","version_name":"1.0","branch":null,"date_published":"2024-01-01T00:00:00+0000"},
			{"build_id":"3","version_name":"1.2b","branch":"beta","date_published":"2024-03-01T00:00:00+0000"},
			{"build_id":"2","version_name":"1.1","branch":"","date_published":"2024-02-01T00:00:00+0000"}
		]}`,
		"linux": `{"total_count":0,"count":0,"items":[]}`,
	}))
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	want := []domain.Snapshot{
		&domain.BuildSnapshot{
			ProductID: 2000000001, OS: "windows", Branch: "beta", BuildCount: 1,
			LatestVersion: "1.2b", VersionNames: []string{"1.2b"}, HasPrivateBranches: true,
		},
		&domain.BuildSnapshot{
			ProductID: 2000000001, OS: "windows", Branch: "main", BuildCount: 2,
			LatestVersion: "1.1", VersionNames: []string{"1.1", "1.0"}, HasPrivateBranches: true,
		},
	}
	if diff := cmp.Diff(want, snaps); diff != "" {
		t.Errorf("snapshots mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalise_ItemOrderDoesNotMatter(t *testing.T) {
	a, err := New().Normalise(context.Background(), raw(map[string]string{
		"osx": `{"total_count":2,"items":[
			{"build_id":"1","version_name":"1.0","date_published":"2024-01-01"},
			{"build_id":"2","version_name":"1.1","date_published":"2024-02-01"}]}`,
	}))
	require.NoError(t, err)
	b, err := New().Normalise(context.Background(), raw(map[string]string{
		"osx": `{"items":[
			{"date_published":"2024-02-01","version_name":"1.1","build_id":"2"},
			{"date_published":"2024-01-01","version_name":"1.0","build_id":"1"}],"total_count":2}`,
	}))
	require.NoError(t, err)

	fa, err := domain.Fingerprint(a[0])
	require.NoError(t, err)
	fb, err := domain.Fingerprint(b[0])
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
}

func TestNormalise_NoBuildsIsNotFound(t *testing.T) {
	_, err := New().Normalise(context.Background(), raw(map[string]string{
		"windows": `{"total_count":0,"items":[]}`,
		"osx":     `{"total_count":0,"items":[]}`,
	}))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = New().Normalise(context.Background(), raw(nil))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNormalise_BadJSON(t *testing.T) {
	_, err := New().Normalise(context.Background(), raw(map[string]string{"windows": `{`}))
	assert.ErrorIs(t, err, domain.ErrNormalise)
}
