package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driving"
)

func sampleHistory(t *testing.T) []driving.KeyHistory {
	t.Helper()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	old, err := domain.NewRecord(&domain.BuildSnapshot{ProductID: 1, OS: "windows", LatestVersion: "1.0"}, at)
	require.NoError(t, err)
	require.NoError(t, old.Supersede(at.Add(time.Hour)))
	cur, err := domain.NewRecord(&domain.BuildSnapshot{ProductID: 1, OS: "windows", LatestVersion: "1.1"}, at.Add(time.Hour))
	require.NoError(t, err)

	return []driving.KeyHistory{{Key: old.Key, Versions: []*domain.VersionedRecord{old, cur}}}
}

func TestHistoryCmd(t *testing.T) {
	setupServices(t, nil, &mockHistory{history: sampleHistory(t)})

	out, err := execute(t, "history", "build", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "build:1/windows/main")
	assert.Contains(t, out, "[superseded] 1.0")
	assert.Contains(t, out, "[current] 1.1")
}

func TestHistoryCmd_JSON(t *testing.T) {
	setupServices(t, nil, &mockHistory{history: sampleHistory(t)})

	out, err := execute(t, "history", "build", "1", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"build_version": "1.1"`)
}

func TestHistoryCmd_Empty(t *testing.T) {
	setupServices(t, nil, &mockHistory{})

	out, err := execute(t, "history", "rating", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "No rating history for 9.")
}

func TestHistoryCmd_BadArgs(t *testing.T) {
	setupServices(t, nil, &mockHistory{})

	_, err := execute(t, "history", "forum", "1")
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)

	_, err = execute(t, "history", "product", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = execute(t, "history", "product")
	assert.Error(t, err)
}

func TestStatsCmd(t *testing.T) {
	h := &mockHistory{stats: []driven.ChangeCounts{
		{Kind: domain.KindProduct, Added: 3, Updated: 2, Delisted: 1, Current: 40},
	}}
	setupServices(t, nil, h)

	out, err := execute(t, "stats", "--since", "2024-01-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Changes since 2024-01-15")
	assert.Regexp(t, `product\s+3\s+2\s+1\s+40`, out)
	assert.Equal(t, 15, h.since.Day())
}

func TestStatsCmd_DefaultCutoff(t *testing.T) {
	h := &mockHistory{}
	setupServices(t, nil, h)
	settings.CutoffDate = time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)

	_, err := execute(t, "stats")
	require.NoError(t, err)
	assert.Equal(t, settings.CutoffDate, h.since)

	settings.CutoffDate = time.Time{}
	_, err = execute(t, "stats")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -30), h.since, time.Minute)
}

func TestStatsCmd_BadSince(t *testing.T) {
	setupServices(t, nil, &mockHistory{})

	_, err := execute(t, "stats", "--since", "yesterday")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunsCmd(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	h := &mockHistory{runs: []*domain.ScanRun{{
		ID:         "run-1",
		Category:   domain.CategoryBuilds,
		Mode:       domain.ModeFull,
		Status:     domain.RunFailed,
		StartedAt:  started,
		FinishedAt: &finished,
		Report:     domain.ScanReport{Processed: 10, Added: 2, Failed: 1},
		Error:      "blocked by remote service",
	}}}
	setupServices(t, nil, h)

	out, err := execute(t, "runs", "-n", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, h.limit)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "took 1m30s")
	assert.Contains(t, out, "10 processed, 2 changes, 1 failed")
	assert.Contains(t, out, "error: blocked by remote service")
}

func TestRunsCmd_Empty(t *testing.T) {
	setupServices(t, nil, &mockHistory{})

	out, err := execute(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "No scan runs recorded.")
}

func TestHistoryCmds_NotConfigured(t *testing.T) {
	setupServices(t, nil, nil)

	for _, args := range [][]string{{"history", "product", "1"}, {"stats"}, {"runs"}} {
		_, err := execute(t, args...)
		assert.EqualError(t, err, "history service not configured", args[0])
	}
}
