// Package build provides a Normaliser for content-system build listings.
// Each OS listing is split into one snapshot per branch.
package build
