package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// DefaultFileName is the configuration file looked up when no path is given.
const DefaultFileName = "catdelta.toml"

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore reads a TOML file into flat dot-notation keys:
//
//	[http]
//	timeout = "30s"
//
// is exposed as "http.timeout". Arrays of tables such as [[full.dead_zones]]
// are kept whole under their own key.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewConfigStore creates a store for path and loads it.
// If path is empty, defaults to ~/.catdelta/catdelta.toml. A missing file
// yields an empty store.
func NewConfigStore(path string) (*ConfigStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".catdelta", DefaultFileName)
	}

	s := &ConfigStore{filePath: path}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.data))
}

// Load re-reads the TOML file. A file that disappeared leaves the store empty.
func (s *ConfigStore) Load() error {
	raw, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		raw, err = nil, nil
	}
	if err != nil {
		return err
	}

	var tree map[string]any
	if err := toml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}

	data := make(map[string]any)
	flatten(tree, "", data)

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *ConfigStore) Path() string {
	return s.filePath
}

// flatten copies nested tables into out under dot-joined keys.
func flatten(tree map[string]any, prefix string, out map[string]any) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if table, ok := value.(map[string]any); ok {
			flatten(table, key, out)
			continue
		}
		out[key] = value
	}
}
