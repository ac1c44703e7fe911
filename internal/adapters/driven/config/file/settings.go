package file

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
	"github.com/custodia-labs/catalog-delta/internal/logger"
)

// cutoffLayout is the accepted string form of general.cutoff_date.
const cutoffLayout = "2006-01-02"

// LoadSettings builds validated settings from a config store. Keys that are
// absent keep their defaults.
func LoadSettings(store driven.ConfigStore) (domain.Settings, error) {
	s := domain.DefaultSettings()
	l := loader{store: store, seen: make(map[string]bool)}

	// General
	l.integer("general.threads", &s.Threads)
	l.text("general.country_code", &s.CountryCode)
	s.CountryCode = strings.ToUpper(s.CountryCode)
	l.currencies("general.currencies", &s.Currencies)
	l.date("general.cutoff_date", &s.CutoffDate)
	l.text("general.log_level", &s.LogLevel)
	l.text("general.log_file", &s.LogFile)
	l.text("general.data_dir", &s.DataDir)
	l.text("general.stop_file", &s.StopFile)

	// HTTP
	l.duration("http.timeout", &s.HTTP.Timeout)
	l.integer("http.max_retries", &s.HTTP.MaxRetries)
	l.duration("http.retry_delay", &s.HTTP.RetryDelay)
	l.float("http.requests_per_second", &s.HTTP.RequestsPerSecond)
	l.duration("http.cooldown", &s.HTTP.Cooldown)
	l.duration("http.max_delay", &s.HTTP.MaxDelay)
	l.integer("http.max_strikes", &s.HTTP.MaxStrikes)
	l.text("http.user_agent", &s.HTTP.UserAgent)
	l.text("http.cookie", &s.HTTP.Cookie)

	// Endpoints
	l.text("endpoints.api", &s.Endpoints.API)
	l.text("endpoints.content_system", &s.Endpoints.ContentSystem)
	l.text("endpoints.reviews", &s.Endpoints.Reviews)
	l.text("endpoints.catalog", &s.Endpoints.Catalog)

	// Full scans
	l.integer64("full.start_id", &s.Full.StartID)
	l.integer64("full.stop_id", &s.Full.StopID)
	l.integer("full.batch_size", &s.Full.BatchSize)
	l.deadZones("full.dead_zones", &s.Full.DeadZones)

	// Manual scans
	l.ids("manual.ids", &s.ManualIDs)

	for _, key := range store.Keys() {
		if !l.seen[key] {
			logger.Warn("%s: unknown config key %q ignored", store.Path(), key)
		}
	}

	if err := errors.Join(l.errs...); err != nil {
		return s, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, store.Path(), err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// loader overlays present keys and collects conversion errors.
type loader struct {
	store driven.ConfigStore
	seen  map[string]bool
	errs  []error
}

func (l *loader) get(key string) (any, bool) {
	l.seen[key] = true
	return l.store.Get(key)
}

func (l *loader) fail(key string, val any, want string) {
	l.errs = append(l.errs, fmt.Errorf("%s: %v is not %s", key, val, want))
}

func (l *loader) text(key string, dst *string) {
	val, ok := l.get(key)
	if !ok {
		return
	}
	str, ok := val.(string)
	if !ok {
		l.fail(key, val, "a string")
		return
	}
	*dst = strings.TrimSpace(str)
}

func (l *loader) integer(key string, dst *int) {
	var n int64
	if l.integer64(key, &n) {
		*dst = int(n)
	}
}

func (l *loader) integer64(key string, dst *int64) bool {
	val, ok := l.get(key)
	if !ok {
		return false
	}
	switch v := val.(type) {
	case int64:
		*dst = v
	case int:
		*dst = int64(v)
	default:
		l.fail(key, val, "an integer")
		return false
	}
	return true
}

func (l *loader) float(key string, dst *float64) {
	val, ok := l.get(key)
	if !ok {
		return
	}
	switch v := val.(type) {
	case float64:
		*dst = v
	case int64:
		*dst = float64(v)
	case int:
		*dst = float64(v)
	default:
		l.fail(key, val, "a number")
	}
}

// duration accepts Go duration strings ("30s", "15m") or whole seconds.
func (l *loader) duration(key string, dst *time.Duration) {
	val, ok := l.get(key)
	if !ok {
		return
	}
	switch v := val.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	case int64:
		*dst = time.Duration(v) * time.Second
	case int:
		*dst = time.Duration(v) * time.Second
	default:
		l.fail(key, val, "a duration")
	}
}

// date accepts a TOML local date, a TOML datetime or a "YYYY-MM-DD" string.
func (l *loader) date(key string, dst *time.Time) {
	val, ok := l.get(key)
	if !ok {
		return
	}
	switch v := val.(type) {
	case toml.LocalDate:
		*dst = v.AsTime(time.UTC)
	case toml.LocalDateTime:
		*dst = v.AsTime(time.UTC)
	case time.Time:
		*dst = v.UTC()
	case string:
		t, err := time.Parse(cutoffLayout, v)
		if err != nil {
			l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = t
	default:
		l.fail(key, val, "a date")
	}
}

// currencies accepts a list of codes or the single word "all".
func (l *loader) currencies(key string, dst *[]string) {
	val, ok := l.get(key)
	if !ok {
		return
	}
	var codes []string
	switch v := val.(type) {
	case string:
		codes = strings.Split(v, ",")
	case []string:
		codes = v
	case []any:
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				l.fail(key, item, "a currency code")
				return
			}
			codes = append(codes, str)
		}
	default:
		l.fail(key, val, "a list of currency codes")
		return
	}

	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if strings.EqualFold(c, domain.AllCurrencies) {
			*dst = []string{domain.AllCurrencies}
			return
		}
		out = append(out, strings.ToUpper(c))
	}
	*dst = out
}

// deadZones reads [[full.dead_zones]] tables with from and to bounds.
// An empty array disables dead-zone skipping.
func (l *loader) deadZones(key string, dst *[]domain.IDRange) {
	val, ok := l.get(key)
	if !ok {
		return
	}
	items, ok := val.([]any)
	if !ok {
		l.fail(key, val, "an array of tables")
		return
	}
	zones := make([]domain.IDRange, 0, len(items))
	for i, item := range items {
		t, ok := item.(map[string]any)
		if !ok {
			l.errs = append(l.errs, fmt.Errorf("%s[%d]: not a table", key, i))
			continue
		}
		from, okFrom := t["from"].(int64)
		to, okTo := t["to"].(int64)
		if !okFrom || !okTo {
			l.errs = append(l.errs, fmt.Errorf("%s[%d]: from and to must be integers", key, i))
			continue
		}
		zones = append(zones, domain.IDRange{From: from, To: to})
	}
	*dst = zones
}

// ids reads a list of product IDs.
func (l *loader) ids(key string, dst *[]int64) {
	val, ok := l.get(key)
	if !ok {
		return
	}
	var items []any
	switch v := val.(type) {
	case []int64:
		*dst = v
		return
	case []any:
		items = v
	default:
		l.fail(key, val, "a list of product ids")
		return
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case int64:
			ids = append(ids, n)
		case int:
			ids = append(ids, int64(n))
		default:
			l.fail(key, item, "a product id")
			return
		}
	}
	*dst = ids
}
