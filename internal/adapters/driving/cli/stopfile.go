package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/catalog-delta/internal/logger"
)

// watchStopFile calls stop once a file appears at path, then removes the
// file. A stale file left by an earlier run is removed first. An empty path
// disables the watcher. The returned function stops watching.
func watchStopFile(path string, stop context.CancelFunc) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	path = filepath.Clean(path)

	if err := os.Remove(path); err == nil {
		logger.Warn("Removed stale stop file %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale stop file: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create stop file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				logger.Warn("Stop file %s found, stopping after in-flight units", path)
				stop()
				if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
					logger.Warn("Failed to remove stop file: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Stop file watcher: %v", err)
			}
		}
	}()

	return func() {
		_ = watcher.Close()
		<-done
	}, nil
}
