// Package file provides a Normaliser deriving installer and patch file
// snapshots from stored product snapshots. It needs no network access.
package file
