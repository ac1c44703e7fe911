package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show effective settings",
	Long: `Shows the settings scans run with: the config file values merged over
the defaults. Edit the config file to change them.`,
	RunE: runSettingsShow,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	s := settings

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[General]")
	cmd.Printf("  Threads: %d\n", s.Threads)
	cmd.Printf("  Country: %s\n", s.CountryCode)
	cmd.Printf("  Currencies: %s\n", currencies(s))
	if !s.CutoffDate.IsZero() {
		cmd.Printf("  Cutoff date: %s\n", s.CutoffDate.Format("2006-01-02"))
	}
	cmd.Printf("  Log level: %s\n", s.LogLevel)
	if s.LogFile != "" {
		cmd.Printf("  Log file: %s\n", s.LogFile)
	}
	if s.StopFile != "" {
		cmd.Printf("  Stop file: %s\n", s.StopFile)
	}
	cmd.Println()

	cmd.Println("[HTTP]")
	cmd.Printf("  Timeout: %s\n", s.HTTP.Timeout)
	cmd.Printf("  Retries: %d (base delay %s)\n", s.HTTP.MaxRetries, s.HTTP.RetryDelay)
	cmd.Printf("  Requests per second: %g\n", s.HTTP.RequestsPerSecond)
	cmd.Printf("  Ban cooldown: %s (max delay %s, %d strikes)\n", s.HTTP.Cooldown, s.HTTP.MaxDelay, s.HTTP.MaxStrikes)
	if s.HTTP.Cookie != "" {
		cmd.Printf("  Cookie: %s\n", maskCookie(s.HTTP.Cookie))
	}
	cmd.Println()

	cmd.Println("[Full Scan]")
	cmd.Printf("  Range: %d - %d\n", s.Full.StartID, s.Full.StopID)
	cmd.Printf("  Batch size: %d\n", s.Full.BatchSize)
	for _, z := range s.Full.DeadZones {
		cmd.Printf("  Dead zone: [%d, %d)\n", z.From, z.To)
	}
	cmd.Println()

	if len(s.ManualIDs) > 0 {
		cmd.Println("[Manual]")
		cmd.Printf("  IDs: %d configured\n", len(s.ManualIDs))
		cmd.Println()
	}

	if err := s.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func currencies(s domain.Settings) string {
	if s.AllCurrenciesSelected() {
		return "all"
	}
	return strings.Join(s.Currencies, ", ")
}

// maskCookie keeps cookie names and hides their values.
func maskCookie(cookie string) string {
	parts := strings.Split(cookie, ";")
	for i, p := range parts {
		name, _, found := strings.Cut(strings.TrimSpace(p), "=")
		if found {
			parts[i] = name + "=****"
		}
	}
	return strings.Join(parts, "; ")
}
