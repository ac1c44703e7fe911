package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

func TestScanCmds_Use(t *testing.T) {
	assert.Equal(t, "products [flags] [ids...]", productsCmd.Use)
	assert.Equal(t, "builds [flags] [ids...]", buildsCmd.Use)
	assert.Equal(t, "prices [flags] [ids...]", pricesCmd.Use)
	assert.Equal(t, "ratings [flags] [ids...]", ratingsCmd.Use)
}

func TestScanCmds_ModeFlags(t *testing.T) {
	tests := []struct {
		cmdName string
		present []string
		absent  []string
	}{
		{"products", []string{"m", "f", "u", "d", "n", "e"}, []string{"p", "a"}},
		{"builds", []string{"m", "f", "u", "d", "p"}, []string{"n", "e", "a"}},
		{"prices", []string{"m", "u", "d", "a"}, []string{"f", "n", "e", "p"}},
		{"ratings", []string{"m", "u", "d"}, []string{"f", "n", "e", "p", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.cmdName, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{tt.cmdName})
			require.NoError(t, err)
			for _, short := range tt.present {
				assert.NotNil(t, cmd.Flags().ShorthandLookup(short), "-%s", short)
			}
			for _, short := range tt.absent {
				assert.Nil(t, cmd.Flags().ShorthandLookup(short), "-%s", short)
			}
		})
	}
}

func TestScanCmd_Modes(t *testing.T) {
	tests := []struct {
		args []string
		want domain.ScanMode
	}{
		{[]string{"products", "-f"}, domain.ModeFull},
		{[]string{"products", "-n"}, domain.ModeNew},
		{[]string{"products", "--extract"}, domain.ModeExtract},
		{[]string{"builds", "-p"}, domain.ModeProducts},
		{[]string{"ratings", "-u"}, domain.ModeUpdate},
		{[]string{"prices", "-d"}, domain.ModeDelisted},
	}

	for _, tt := range tests {
		t.Run(tt.args[0]+" "+tt.args[1], func(t *testing.T) {
			s := &mockScanner{}
			setupServices(t, s, nil)

			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.lastRequest().Mode)
			assert.Equal(t, domain.Category(tt.args[0]), s.lastRequest().Category)
			assert.Contains(t, out, "Scan complete.")
		})
	}
}

func TestScanCmd_ManualIDs(t *testing.T) {
	s := &mockScanner{report: &domain.ScanReport{Processed: 2, Added: 1}}
	setupServices(t, s, nil)

	out, err := execute(t, "prices", "-m", "-a", "5", "7")
	require.NoError(t, err)

	req := s.lastRequest()
	assert.Equal(t, domain.ModeManual, req.Mode)
	assert.Equal(t, []int64{5, 7}, req.IDs)
	assert.True(t, req.AllCurrencies)
	assert.Contains(t, out, "Added:     1")
}

func TestScanCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no mode", []string{"ratings"}},
		{"two modes", []string{"builds", "-m", "-f"}},
		{"ids outside manual mode", []string{"products", "-u", "5"}},
		{"bad id", []string{"products", "-m", "abc"}},
		{"unsupported flag", []string{"prices", "-f"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mockScanner{}
			setupServices(t, s, nil)

			_, err := execute(t, tt.args...)
			assert.Error(t, err)
			assert.Empty(t, s.reqs)
		})
	}
}

func TestScanCmd_Failure(t *testing.T) {
	s := &mockScanner{err: domain.ErrBlocked, report: &domain.ScanReport{Processed: 3}}
	setupServices(t, s, nil)

	out, err := execute(t, "builds", "-u")
	require.ErrorIs(t, err, domain.ErrBlocked)
	assert.Contains(t, out, "Processed: 3", "the partial report is still printed")
}

func TestScanCmd_NotConfigured(t *testing.T) {
	setupServices(t, nil, nil)

	_, err := execute(t, "ratings", "-m")
	assert.EqualError(t, err, "scan service not configured")
}

// dropStopFile writes the stop file once the scan has started.
func dropStopFile(s *mockScanner, path string) {
	for range 100 {
		time.Sleep(20 * time.Millisecond)
		s.mu.Lock()
		started := len(s.reqs) > 0
		s.mu.Unlock()
		if started {
			break
		}
	}
	_ = os.WriteFile(path, nil, 0o644)
}

func TestScanCmd_StopFile(t *testing.T) {
	s := &mockScanner{block: true}
	setupServices(t, s, nil)
	stop := filepath.Join(t.TempDir(), "catdelta.stop")
	settings.StopFile = stop

	go dropStopFile(s, stop)

	out, err := execute(t, "products", "-f")
	require.NoError(t, err)
	assert.Contains(t, out, "Scan stopped.")

	_, statErr := os.Stat(stop)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "the stop file is consumed")
}

func TestScanCmd_StaleStopFileRemoved(t *testing.T) {
	s := &mockScanner{}
	setupServices(t, s, nil)
	stop := filepath.Join(t.TempDir(), "catdelta.stop")
	require.NoError(t, os.WriteFile(stop, nil, 0o644))
	settings.StopFile = stop

	out, err := execute(t, "ratings", "-m")
	require.NoError(t, err)
	assert.Contains(t, out, "Scan complete.")
}

func TestScanWithProgress_PrintsCounters(t *testing.T) {
	old := progressInterval
	progressInterval = 10 * time.Millisecond
	defer func() { progressInterval = old }()

	s := &mockScanner{block: true}
	setupServices(t, s, nil)
	stop := filepath.Join(t.TempDir(), "stop")
	settings.StopFile = stop

	go func() {
		time.Sleep(100 * time.Millisecond)
		dropStopFile(s, stop)
	}()

	out, err := execute(t, "ratings", "-u")
	require.NoError(t, err)
	assert.Contains(t, out, "Processed 7 ids")
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1207658924", "2"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1207658924, 2}, ids)

	_, err = parseIDs([]string{"0"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
