// Package product provides a Normaliser for catalog product payloads.
// It keeps the fields worth versioning (title, links, languages, changelog,
// description, installers and patches) and drops everything volatile.
package product
