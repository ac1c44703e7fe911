package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// AllCurrencies is the currency list value that disables currency filtering.
const AllCurrencies = "all"

// SupportedOSes are the platforms builds are queried for.
var SupportedOSes = []string{"windows", "osx", "linux"}

// IDRange is a closed-open interval [From, To) of product IDs.
type IDRange struct {
	From int64
	To   int64
}

// Contains reports whether id lies in the range.
func (r IDRange) Contains(id int64) bool {
	return id >= r.From && id < r.To
}

// HTTPSettings configures remote requests and the shared throttle.
type HTTPSettings struct {
	// Timeout bounds every single request.
	Timeout time.Duration

	// MaxRetries is the transient retry budget of one unit of work.
	MaxRetries int

	// RetryDelay is the base of the jittered exponential retry delay.
	RetryDelay time.Duration

	// RequestsPerSecond paces requests across the whole pool.
	RequestsPerSecond float64

	// Cooldown is the pool-wide pause after the first ban signal.
	Cooldown time.Duration

	// MaxDelay bounds the escalated inter-request delay and cooldown.
	MaxDelay time.Duration

	// MaxStrikes is the number of ban signals tolerated before the run fails.
	MaxStrikes int

	// UserAgent and Cookie are sent with every request.
	UserAgent string
	Cookie    string
}

// Endpoints are the base URLs of the remote catalog service.
type Endpoints struct {
	API           string
	ContentSystem string
	Reviews       string
	Catalog       string
}

// FullScanSettings bounds full-range walks.
type FullScanSettings struct {
	StartID   int64
	StopID    int64
	BatchSize int
	DeadZones []IDRange
}

// Settings is the scan configuration. It is built once at startup and passed
// by value; nothing mutates it afterwards.
type Settings struct {
	Threads     int
	CountryCode string

	// Currencies filters price quotes. A single AllCurrencies entry or an
	// empty list keeps every currency.
	Currencies []string

	// CutoffDate is the lower bound of the stats report.
	CutoffDate time.Time

	LogLevel string
	LogFile  string
	DataDir  string
	StopFile string

	HTTP      HTTPSettings
	Endpoints Endpoints
	Full      FullScanSettings

	// ManualIDs is the seed list of manual scans.
	ManualIDs []int64
}

// DefaultSettings returns the settings used when no config is present.
func DefaultSettings() Settings {
	return Settings{
		Threads:     4,
		CountryCode: "US",
		Currencies:  []string{"USD"},
		LogLevel:    "info",
		HTTP: HTTPSettings{
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RetryDelay:        5 * time.Second,
			RequestsPerSecond: 4,
			Cooldown:          60 * time.Second,
			MaxDelay:          15 * time.Minute,
			MaxStrikes:        10,
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0",
			Cookie:            "gog_lc=BE_EUR_en-US",
		},
		Endpoints: Endpoints{
			API:           "https://api.gog.com",
			ContentSystem: "https://content-system.gog.com",
			Reviews:       "https://reviews.gog.com",
			Catalog:       "https://catalog.gog.com",
		},
		Full: FullScanSettings{
			StartID:   1,
			StopID:    2_147_483_647,
			BatchSize: 100,
			DeadZones: []IDRange{{From: 1, To: 1_000_000_000}},
		},
	}
}

// Validate checks the settings for values no scan can run with.
func (s Settings) Validate() error {
	var problems []string
	if s.Threads < 1 {
		problems = append(problems, "threads must be at least 1")
	}
	if len(s.CountryCode) != 2 {
		problems = append(problems, fmt.Sprintf("country code %q is not a two-letter code", s.CountryCode))
	}
	if s.HTTP.Timeout <= 0 {
		problems = append(problems, "http timeout must be positive")
	}
	if s.HTTP.MaxRetries < 0 {
		problems = append(problems, "max retries cannot be negative")
	}
	if s.HTTP.RetryDelay < 0 {
		problems = append(problems, "retry delay cannot be negative")
	}
	if s.HTTP.Cooldown <= 0 {
		problems = append(problems, "cooldown must be positive")
	}
	if s.HTTP.MaxDelay <= 0 {
		problems = append(problems, "max delay must be positive")
	} else if s.HTTP.Cooldown > s.HTTP.MaxDelay {
		problems = append(problems, fmt.Sprintf("cooldown %s exceeds max delay %s", s.HTTP.Cooldown, s.HTTP.MaxDelay))
	}
	if s.HTTP.RequestsPerSecond <= 0 {
		problems = append(problems, "requests per second must be positive")
	}
	if s.HTTP.MaxStrikes < 1 {
		problems = append(problems, "max strikes must be at least 1")
	}
	if s.Full.BatchSize < 1 {
		problems = append(problems, "batch size must be at least 1")
	}
	if s.Full.StartID < 1 || s.Full.StopID < s.Full.StartID {
		problems = append(problems, fmt.Sprintf("invalid full range [%d, %d]", s.Full.StartID, s.Full.StopID))
	}
	for _, z := range s.Full.DeadZones {
		if z.To <= z.From {
			problems = append(problems, fmt.Sprintf("empty dead zone [%d, %d)", z.From, z.To))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// AllCurrenciesSelected returns true if prices are not filtered by currency.
func (s Settings) AllCurrenciesSelected() bool {
	return len(s.Currencies) == 0 ||
		slices.ContainsFunc(s.Currencies, func(c string) bool { return strings.EqualFold(c, AllCurrencies) })
}

// WantsCurrency reports whether prices in the currency are tracked.
func (s Settings) WantsCurrency(currency string) bool {
	if s.AllCurrenciesSelected() {
		return true
	}
	return slices.ContainsFunc(s.Currencies, func(c string) bool { return strings.EqualFold(c, currency) })
}

// WithAllCurrencies returns a copy of the settings tracking every currency.
func (s Settings) WithAllCurrencies() Settings {
	s.Currencies = []string{AllCurrencies}
	return s
}

// InDeadZone returns the dead zone containing id, if any.
func (s Settings) InDeadZone(id int64) (IDRange, bool) {
	for _, z := range s.Full.DeadZones {
		if z.Contains(id) {
			return z, true
		}
	}
	return IDRange{}, false
}
