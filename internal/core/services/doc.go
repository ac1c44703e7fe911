// Package services implements the driving port interfaces.
// Services contain the scan pipeline (walker, worker pool, delta engine,
// single writer) and orchestrate calls to driven ports (adapters).
//
// Services depend only on the domain and port packages, never on a
// concrete adapter.
package services
