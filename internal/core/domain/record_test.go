package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func buildSnap(version string) *BuildSnapshot {
	return &BuildSnapshot{
		ProductID:     2000000001,
		OS:            "windows",
		Branch:        MainBranch,
		BuildCount:    1,
		LatestVersion: version,
		VersionNames:  []string{version},
	}
}

func TestNewRecord(t *testing.T) {
	rec, err := NewRecord(buildSnap("1.0"), t0)
	require.NoError(t, err)

	assert.Equal(t, BuildKey(2000000001, "windows", "main"), rec.Key)
	assert.Equal(t, t0, rec.AddedAt)
	assert.Equal(t, t0, rec.UpdatedAt)
	assert.Nil(t, rec.SupersededAt)
	assert.Nil(t, rec.DelistedAt)
	assert.Equal(t, StateCurrent, rec.State())
	assert.Len(t, rec.Fingerprint, 64)
}

func TestNewRecord_InvalidKey(t *testing.T) {
	_, err := NewRecord(&PriceSnapshot{ProductID: 1, Country: "US"}, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewRecord(nil, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVersionedRecord_Supersede(t *testing.T) {
	rec, err := NewRecord(buildSnap("1.0"), t0)
	require.NoError(t, err)

	t1 := t0.Add(time.Hour)
	require.NoError(t, rec.Supersede(t1))
	assert.Equal(t, StateSuperseded, rec.State())
	assert.False(t, rec.IsCurrent())
	assert.Equal(t, t1, *rec.SupersededAt)

	// Superseded is terminal.
	assert.ErrorIs(t, rec.Supersede(t1.Add(time.Hour)), ErrInvalidTransition)
	_, err = rec.Delist(t1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = rec.Relist()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestVersionedRecord_SupersedeBeforeUpdate(t *testing.T) {
	rec, err := NewRecord(buildSnap("1.0"), t0)
	require.NoError(t, err)

	assert.ErrorIs(t, rec.Supersede(t0.Add(-time.Second)), ErrInvalidTransition)
	assert.Nil(t, rec.SupersededAt)
}

func TestVersionedRecord_DelistRelist(t *testing.T) {
	rec, err := NewRecord(buildSnap("1.0"), t0)
	require.NoError(t, err)

	changed, err := rec.Delist(t0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StateDelisted, rec.State())
	assert.True(t, rec.IsCurrent())

	changed, err = rec.Delist(t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed, "second delist is a no-op")
	assert.Equal(t, t0.Add(time.Minute), *rec.DelistedAt)

	changed, err = rec.Relist()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StateCurrent, rec.State())

	changed, err = rec.Relist()
	require.NoError(t, err)
	assert.False(t, changed)
}
