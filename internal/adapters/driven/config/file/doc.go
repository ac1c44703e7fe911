// Package file provides file-based implementations of driven port interfaces.
// These adapters read data from the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - LoadSettings: converts a ConfigStore into immutable scan settings
package file
