// Package catalog implements the CatalogClient port against the remote
// catalog service's JSON endpoints.
//
// Every request passes through one shared Throttle. Ban signals (HTTP 425,
// 429, 509 or an HTML block page instead of JSON) put the whole pool into a
// cooldown and slow the pace for the rest of the run. Too many ban signals
// make every later request fail with domain.ErrBlocked.
package catalog
