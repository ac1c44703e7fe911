package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), DatabaseFile))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{db: db}
}

func script(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func TestMigrate_AppliesPendingInOrder(t *testing.T) {
	ctx := context.Background()
	s := rawStore(t)

	v1 := fstest.MapFS{
		"001_a.up.sql":   script("CREATE TABLE a (id INTEGER);"),
		"001_a.down.sql": script("DROP TABLE a;"),
	}
	require.NoError(t, s.migrate(ctx, v1))

	v2 := fstest.MapFS{
		"001_a.up.sql": v1["001_a.up.sql"],
		"010_c.up.sql": script("CREATE TABLE c (b_id INTEGER REFERENCES b(id));"),
		"002_b.up.sql": script("CREATE TABLE b (id INTEGER PRIMARY KEY);"),
	}
	require.NoError(t, s.migrate(ctx, v2))
	require.NoError(t, s.migrate(ctx, v2), "re-running is a no-op")

	v, err := s.schemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 3, n)
}

func TestMigrate_FailedScriptRollsBack(t *testing.T) {
	ctx := context.Background()
	s := rawStore(t)

	err := s.migrate(ctx, fstest.MapFS{
		"001_ok.up.sql":  script("CREATE TABLE ok (id INTEGER);"),
		"002_bad.up.sql": script("CREATE TABLE broken (;"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_bad.up.sql")

	v, err := s.schemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestMigrate_RefusesNewerDatabase(t *testing.T) {
	ctx := context.Background()
	s := rawStore(t)

	require.NoError(t, s.migrate(ctx, fstest.MapFS{
		"001_a.up.sql": script("CREATE TABLE a (id INTEGER);"),
		"002_b.up.sql": script("CREATE TABLE b (id INTEGER);"),
	}))

	err := s.migrate(ctx, fstest.MapFS{
		"001_a.up.sql": script("CREATE TABLE a (id INTEGER);"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer")
}

func TestListMigrations_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"no version", fstest.MapFS{"initial.up.sql": script("")}},
		{"zero version", fstest.MapFS{"000_initial.up.sql": script("")}},
		{"duplicate version", fstest.MapFS{"001_a.up.sql": script(""), "1_b.up.sql": script("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := listMigrations(tt.fsys)
			assert.Error(t, err)
		})
	}
}
