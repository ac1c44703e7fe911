// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements the store interfaces
// through a single database connection:
//
//   - RecordStore: versioned entity history, one table per entity kind
//   - CheckpointStore: scan cursors and deferred IDs
//   - RunStore: the scan run ledger
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Every entity table carries a partial unique index on its key restricted to
// rows that have not been superseded, so a key never has two current rows.
//
// # Data Location
//
// By default, the database is stored at ~/.catdelta/data/catalog.db
//
// # Thread Safety
//
// All operations are thread-safe. The pool is capped at one connection, which
// serialises writers; WAL mode lets other processes read during a scan.
package sqlite
