package driven

// ConfigStore exposes raw configuration values by dot-separated key, such
// as "http.timeout". Typed conversion and validation happen when settings
// are built, so stores only report what the source contained.
type ConfigStore interface {
	// Get returns the value stored under key and whether it was present.
	Get(key string) (any, bool)

	// Keys lists every key present, sorted.
	Keys() []string

	// Load re-reads the underlying source.
	Load() error

	// Path identifies the source in error messages.
	Path() string
}
