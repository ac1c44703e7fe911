package catalog

import (
	"time"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// ProbeChunkSize is the number of IDs the bulk products endpoint accepts.
	ProbeChunkSize = 50

	// ListingPageSize is the page size of catalog listing queries.
	ListingPageSize = 48
)

// ban statuses signal throttling rather than an entity-level problem.
var banStatuses = map[int]bool{
	425: true,
	429: true,
	509: true,
}

// Config holds the parsed configuration for the catalog client.
type Config struct {
	Endpoints domain.Endpoints
	HTTP      domain.HTTPSettings

	// Country is the country code prices are quoted for.
	Country string

	// OSes are the platforms queried for builds.
	OSes []string
}

// ConfigFromSettings extracts the client configuration from the settings.
func ConfigFromSettings(s domain.Settings) Config {
	cfg := Config{
		Endpoints: s.Endpoints,
		HTTP:      s.HTTP,
		Country:   s.CountryCode,
		OSes:      domain.SupportedOSes,
	}
	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = DefaultTimeout
	}
	return cfg
}
