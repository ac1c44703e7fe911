// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CatalogClient: Fetches raw payloads from the remote catalog service
//   - Normaliser: Maps raw payloads to canonical snapshots
//   - NormaliserRegistry: Selects the normaliser for an entity kind
//   - RecordStore: Versioned record persistence (single writer)
//   - CheckpointStore: Scan progress and deferred IDs
//   - RunStore: Scan run ledger
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
