package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driving"
)

// modeFlag binds a mode to its short flag.
type modeFlag struct {
	mode  domain.ScanMode
	short string
	usage string
}

var commonModes = []modeFlag{
	{domain.ModeManual, "m", "scan the configured ids, or the ids given as arguments"},
	{domain.ModeFull, "f", "scan the configured id range, resuming from the checkpoint"},
	{domain.ModeUpdate, "u", "re-scan every known id"},
	{domain.ModeDelisted, "d", "re-scan delisted ids"},
}

// progressInterval is how often a running scan prints its counters.
var progressInterval = 10 * time.Second

var productsCmd = newScanCmd(domain.CategoryProducts, "Scan product data", []modeFlag{
	{domain.ModeNew, "n", "scan the new arrival and upcoming listings"},
	{domain.ModeExtract, "e", "extract installer and patch files from stored products"},
})

var buildsCmd = newScanCmd(domain.CategoryBuilds, "Scan build histories", []modeFlag{
	{domain.ModeProducts, "p", "scan builds of every known product"},
})

var pricesCmd = newScanCmd(domain.CategoryPrices, "Scan prices", nil)

var ratingsCmd = newScanCmd(domain.CategoryRatings, "Scan user ratings", nil)

var allCurrencies bool

func init() {
	pricesCmd.Flags().BoolVarP(&allCurrencies, "all-currencies", "a", false, "track every currency instead of the configured ones")
	rootCmd.AddCommand(productsCmd, buildsCmd, pricesCmd, ratingsCmd)
}

// newScanCmd builds a scan command with one boolean flag per supported mode.
// Exactly one mode flag must be set.
func newScanCmd(category domain.Category, short string, extra []modeFlag) *cobra.Command {
	selected := make(map[domain.ScanMode]*bool)
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s [flags] [ids...]", category),
		Short: short,
		Long: fmt.Sprintf(`Scans %s and records what changed since the last scan.

Select one mode with its flag. Manual mode (-m) scans the ids given as
arguments, or the configured manual.ids when none are given. Full and update
scans save their progress and resume where they stopped.`, category),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode domain.ScanMode
			for m, set := range selected {
				if *set {
					mode = m
				}
			}
			return runScan(cmd, category, mode, args)
		},
	}

	flags := append(append([]modeFlag{}, commonModes...), extra...)
	names := make([]string, 0, len(flags))
	for _, f := range flags {
		if !category.Supports(f.mode) {
			continue
		}
		selected[f.mode] = cmd.Flags().BoolP(string(f.mode), f.short, false, f.usage)
		names = append(names, string(f.mode))
	}
	cmd.MarkFlagsMutuallyExclusive(names...)
	cmd.MarkFlagsOneRequired(names...)
	return cmd
}

func runScan(cmd *cobra.Command, category domain.Category, mode domain.ScanMode, args []string) error {
	svc, err := requireScanner()
	if err != nil {
		return err
	}

	req := driving.ScanRequest{
		Category:      category,
		Mode:          mode,
		AllCurrencies: category == domain.CategoryPrices && allCurrencies,
	}
	if len(args) > 0 {
		if mode != domain.ModeManual {
			return fmt.Errorf("%w: ids can only be given in manual mode", domain.ErrInvalidInput)
		}
		if req.IDs, err = parseIDs(args); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unwatch, err := watchStopFile(settings.StopFile, cancel)
	if err != nil {
		return err
	}
	defer unwatch()

	cmd.Printf("Scanning %s (%s mode)...\n", category, mode)
	report, err := scanWithProgress(ctx, cmd, svc, req)
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if ctx.Err() != nil {
		cmd.Println("Scan stopped. Progress up to the last completed batch is saved.")
	} else {
		cmd.Println("Scan complete.")
	}
	return nil
}

// scanWithProgress runs a scan while printing its counters periodically.
func scanWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	svc driving.Scanner,
	req driving.ScanRequest,
) (*domain.ScanReport, error) {
	type outcome struct {
		report *domain.ScanReport
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		report, err := svc.Run(ctx, req)
		done <- outcome{report, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case out := <-done:
			return out.report, out.err
		case <-ticker.C:
			// Best effort; a status error only skips one progress line.
			status, err := svc.Status(context.WithoutCancel(ctx), req.Category)
			if err == nil && status != nil && status.Report.Processed > lastCount {
				cmd.Printf("Processed %d ids (%d changes)\n", status.Report.Processed, status.Report.Changes())
				lastCount = status.Report.Processed
			}
		}
	}
}

func printReport(cmd *cobra.Command, r *domain.ScanReport) {
	cmd.Printf("  Processed: %d\n", r.Processed)
	cmd.Printf("  Added:     %d\n", r.Added)
	cmd.Printf("  Updated:   %d\n", r.Updated)
	cmd.Printf("  Unchanged: %d\n", r.Unchanged)
	cmd.Printf("  Delisted:  %d\n", r.Delisted)
	cmd.Printf("  Relisted:  %d\n", r.Relisted)
	cmd.Printf("  Not found: %d\n", r.NotFound)
	cmd.Printf("  Failed:    %d\n", r.Failed)
	cmd.Printf("  Skipped:   %d\n", r.Skipped)
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: product id %q", domain.ErrInvalidInput, a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
