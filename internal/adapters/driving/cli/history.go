package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

const timeFormat = "2006-01-02 15:04:05"

var (
	historyJSON bool
	statsSince  string
	runsLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history <kind> <product-id>",
	Short: "Show the stored history of a product",
	Long: `Lists every stored version of every entity of a kind for one product,
oldest first. Kinds: product, file, build, price, rating.`,
	Args: cobra.ExactArgs(2),
	RunE: runHistory,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise changes since the cutoff date",
	Long: `Counts entries added, updated and delisted per kind since a cutoff.
The cutoff defaults to general.cutoff_date, or 30 days ago when unset.`,
	RunE: runStats,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent scan runs",
	RunE:  runRuns,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output versions as JSON")
	statsCmd.Flags().StringVar(&statsSince, "since", "", "cutoff date (YYYY-MM-DD)")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "maximum number of runs")
	rootCmd.AddCommand(historyCmd, statsCmd, runsCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	kind, err := domain.ParseEntityKind(args[0])
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: product id %q", domain.ErrInvalidInput, args[1])
	}

	history, err := historyService.History(cmd.Context(), kind, id)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if historyJSON {
		data, err := json.MarshalIndent(history, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(history) == 0 {
		cmd.Printf("No %s history for %d.\n", kind, id)
		return nil
	}
	for _, h := range history {
		cmd.Println(h.Key.String())
		for _, v := range h.Versions {
			cmd.Printf("  [%s] %s  added %s", v.State(), v.Snapshot.Title(), v.AddedAt.Local().Format(timeFormat))
			if v.SupersededAt != nil {
				cmd.Printf("  superseded %s", v.SupersededAt.Local().Format(timeFormat))
			}
			if v.DelistedAt != nil {
				cmd.Printf("  delisted %s", v.DelistedAt.Local().Format(timeFormat))
			}
			cmd.Println()
		}
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	since := settings.CutoffDate
	if statsSince != "" {
		t, err := time.ParseInLocation(time.DateOnly, statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("%w: since %q", domain.ErrInvalidInput, statsSince)
		}
		since = t
	}
	if since.IsZero() {
		since = time.Now().AddDate(0, 0, -30)
	}

	counts, err := historyService.Stats(cmd.Context(), since)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	cmd.Printf("Changes since %s\n\n", since.Format(time.DateOnly))
	cmd.Printf("  %-8s %8s %8s %8s %8s\n", "KIND", "ADDED", "UPDATED", "DELISTED", "CURRENT")
	for _, c := range counts {
		cmd.Printf("  %-8s %8d %8d %8d %8d\n", c.Kind, c.Added, c.Updated, c.Delisted, c.Current)
	}
	return nil
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	runs, err := historyService.Runs(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No scan runs recorded.")
		return nil
	}

	for _, r := range runs {
		cmd.Printf("%s  %-8s %-9s %-9s started %s", r.ID, r.Category, r.Mode, r.Status, r.StartedAt.Local().Format(timeFormat))
		if r.FinishedAt != nil {
			cmd.Printf("  took %s", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
		}
		cmd.Println()
		cmd.Printf("    %d processed, %d changes, %d failed\n", r.Report.Processed, r.Report.Changes(), r.Report.Failed)
		if r.Error != "" {
			cmd.Printf("    error: %s\n", r.Error)
		}
	}
	return nil
}
