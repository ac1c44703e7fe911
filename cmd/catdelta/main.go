// Command catdelta tracks changes in a remote game catalog.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/catalog-delta/internal/adapters/driven/config/file"
	"github.com/custodia-labs/catalog-delta/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/catalog-delta/internal/adapters/driving/cli"
	"github.com/custodia-labs/catalog-delta/internal/connectors/catalog"
	"github.com/custodia-labs/catalog-delta/internal/core/services"
	"github.com/custodia-labs/catalog-delta/internal/logger"
	"github.com/custodia-labs/catalog-delta/internal/normalisers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.Execute(ctx, boot)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// boot wires storage, the catalog client and the core services from the
// config file at path.
func boot(path string) (*cli.Services, error) {
	store, err := file.NewConfigStore(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	s, err := file.LoadSettings(store)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level, err := logger.ParseLevel(s.LogLevel)
	if err != nil {
		logger.Warn("%v, using info", err)
	}
	logger.SetLevel(level)

	var logFile *os.File
	if s.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(s.LogFile), 0o700); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		logFile, err = os.OpenFile(s.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logger.SetOutput(io.MultiWriter(os.Stderr, logFile))
	}

	db, err := sqlite.NewStore(s.DataDir)
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, err
	}
	logger.Debug("database: %s", db.Path())

	client := catalog.NewClient(catalog.ConfigFromSettings(s))
	registry := normalisers.Defaults()

	return &cli.Services{
		Scanner: services.NewScanOrchestrator(
			db.RecordStore(),
			db.CheckpointStore(),
			db.RunStore(),
			client,
			registry,
			s,
		),
		History:  services.NewHistoryService(db.RecordStore(), db.RunStore()),
		Settings: s,
		Close: func() error {
			errs := []error{db.Close()}
			if logFile != nil {
				logger.SetOutput(os.Stderr)
				errs = append(errs, logFile.Close())
			}
			return errors.Join(errs...)
		},
	}, nil
}
