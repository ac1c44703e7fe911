// Package domain defines the core entities of the catalog scanner.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - EntityKey: the identity of a tracked catalog object
//   - Snapshot: the normalised state of an entity at one scan instant
//   - VersionedRecord: a snapshot plus its lifecycle timestamps
//   - Checkpoint: the durable progress cursor of a scan
//   - Settings: the immutable scan configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
