// Package normalisers maps raw catalog payloads to canonical snapshots.
// Each sub-package handles one entity kind; markup holds the shared
// HTML-to-text conversion used by product descriptions and changelogs.
//
// Normalisers are registered with the Registry at startup, see Defaults.
package normalisers
