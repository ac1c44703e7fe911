// Package cli implements the catdelta command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driving"
	"github.com/custodia-labs/catalog-delta/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=1.2.3".
var version = "dev"

// Services are the core services the commands drive.
type Services struct {
	Scanner  driving.Scanner
	History  driving.HistoryService
	Settings domain.Settings

	// Close releases storage and log files. May be nil.
	Close func() error
}

// Bootstrap builds the services from the config file at path.
type Bootstrap func(configPath string) (*Services, error)

var (
	configPath string
	verbose    bool

	bootstrap Bootstrap
	closer    func() error

	scanner        driving.Scanner
	historyService driving.HistoryService
	settings       = domain.DefaultSettings()
)

var rootCmd = &cobra.Command{
	Use:   "catdelta",
	Short: "Track catalog changes over time",
	Long: `catdelta scans a remote game catalog and keeps the full history of every
product, file, build, price and rating it has seen.

Each scan compares fresh data with the stored current version and only
writes what changed: new entries, updated entries, delistings and relistings.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.catdelta/catdelta.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages")
}

// Execute runs the root command. Services are built by boot once flags are
// parsed. Cancelling ctx stops a running scan between units of work.
func Execute(ctx context.Context, boot Bootstrap) error {
	bootstrap = boot
	defer func() { bootstrap = nil }()

	err := rootCmd.ExecuteContext(ctx)
	if cerr := teardown(); err == nil {
		err = cerr
	}
	return err
}

func setup(*cobra.Command, []string) error {
	logger.SetVerbose(verbose)
	if bootstrap == nil {
		return nil
	}

	svc, err := bootstrap(configPath)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	scanner = svc.Scanner
	historyService = svc.History
	settings = svc.Settings
	closer = svc.Close
	return nil
}

func teardown() error {
	if closer == nil {
		return nil
	}
	err := closer()
	closer = nil
	return err
}

// requireScanner returns the configured scanner.
func requireScanner() (driving.Scanner, error) {
	if scanner == nil {
		return nil, errors.New("scan service not configured")
	}
	return scanner, nil
}
