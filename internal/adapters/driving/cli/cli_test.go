package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driving"
)

// mockScanner implements driving.Scanner for testing.
type mockScanner struct {
	mu     sync.Mutex
	reqs   []driving.ScanRequest
	report *domain.ScanReport
	err    error

	// block holds Run until the context is cancelled.
	block bool
}

func (m *mockScanner) Run(ctx context.Context, req driving.ScanRequest) (*domain.ScanReport, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
	}
	report := m.report
	if report == nil {
		report = &domain.ScanReport{}
	}
	return report, m.err
}

func (m *mockScanner) Status(_ context.Context, category domain.Category) (*driving.ScanStatus, error) {
	return &driving.ScanStatus{Category: category, Running: true, Report: domain.ScanReport{Processed: 7}}, nil
}

func (m *mockScanner) lastRequest() driving.ScanRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reqs[len(m.reqs)-1]
}

// mockHistory implements driving.HistoryService for testing.
type mockHistory struct {
	history []driving.KeyHistory
	stats   []driven.ChangeCounts
	since   time.Time
	runs    []*domain.ScanRun
	limit   int
}

func (m *mockHistory) History(context.Context, domain.EntityKind, int64) ([]driving.KeyHistory, error) {
	return m.history, nil
}

func (m *mockHistory) Stats(_ context.Context, since time.Time) ([]driven.ChangeCounts, error) {
	m.since = since
	return m.stats, nil
}

func (m *mockHistory) Runs(_ context.Context, limit int) ([]*domain.ScanRun, error) {
	m.limit = limit
	return m.runs, nil
}

// setupServices installs mock services and restores the previous ones.
func setupServices(t *testing.T, s driving.Scanner, h driving.HistoryService) {
	t.Helper()
	oldScanner, oldHistory, oldSettings := scanner, historyService, settings
	scanner, historyService, settings = s, h, domain.DefaultSettings()
	t.Cleanup(func() {
		scanner, historyService, settings = oldScanner, oldHistory, oldSettings
	})
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag of the command tree to its default, since
// cobra keeps parsed values between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
