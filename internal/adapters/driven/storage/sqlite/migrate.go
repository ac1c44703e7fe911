package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"
)

const upSuffix = ".up.sql"

// migration is one numbered schema step, e.g. 001_initial.up.sql.
type migration struct {
	version int
	name    string
}

// migrate applies every migration newer than the recorded schema version,
// each in its own transaction. A database written by a newer binary is
// refused rather than downgraded.
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	steps, err := listMigrations(fsys)
	if err != nil {
		return err
	}
	if latest := lastVersion(steps); applied > latest {
		return fmt.Errorf("database schema version %d is newer than supported version %d", applied, latest)
	}

	for _, m := range steps {
		if m.version <= applied {
			continue
		}
		if err := s.apply(ctx, fsys, m); err != nil {
			return err
		}
	}
	return nil
}

// schemaVersion returns the highest applied migration, 0 for a new database.
func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func (s *Store) apply(ctx context.Context, fsys fs.FS, m migration) error {
	script, err := fs.ReadFile(fsys, m.name)
	if err != nil {
		return fmt.Errorf("reading migration %s: %w", m.name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %s: %w", m.name, err)
	}
	if err := applyScript(ctx, tx, m, string(script)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %s: %w", m.name, err)
	}
	return nil
}

func applyScript(ctx context.Context, tx *sql.Tx, m migration, script string) error {
	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("executing migration %s: %w", m.name, err)
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.version, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("recording migration %s: %w", m.name, err)
	}
	return nil
}

// listMigrations returns the up migrations in fsys ordered by version.
// Names must start with a number followed by an underscore.
func listMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "*"+upSuffix)
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	steps := make([]migration, 0, len(names))
	seen := make(map[int]string, len(names))
	for _, name := range names {
		prefix, _, ok := strings.Cut(path.Base(name), "_")
		v, err := strconv.Atoi(prefix)
		if !ok || err != nil || v <= 0 {
			return nil, fmt.Errorf("migration %s: name must start with a version number", name)
		}
		if prev, dup := seen[v]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, name, v)
		}
		seen[v] = name
		steps = append(steps, migration{version: v, name: name})
	}

	slices.SortFunc(steps, func(a, b migration) int { return a.version - b.version })
	return steps, nil
}

func lastVersion(steps []migration) int {
	if len(steps) == 0 {
		return 0
	}
	return steps[len(steps)-1].version
}
