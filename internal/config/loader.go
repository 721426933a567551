package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "PULSE_"
	envConfigPath = "PULSE_CONFIG"
)

// Hosted backend variables honoured when the PULSE_ equivalents are unset.
var (
	backendURLFallbacks = []string{"SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"}
	backendKeyFallbacks = []string{"SUPABASE_SERVICE_ROLE_KEY"}
)

// Prometheus name and label-name charset.
var metricNameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PULSE_CONFIG is set
//  3. env (prefix PULSE_)
//  4. SUPABASE_* fallbacks for backend credentials still empty
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PULSE_GEO_BATCH_LIMIT -> geo_batch_limit (flat keys, underscores kept).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrLoadConfig, err)
	}

	if cfg.BackendURL == "" {
		cfg.BackendURL = firstEnv(backendURLFallbacks)
	}
	if cfg.BackendKey == "" {
		cfg.BackendKey = firstEnv(backendKeyFallbacks)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded values for consistency.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return invalid("addr must not be empty")
	}
	switch c.Store {
	case StoreAuto, StorePostgREST, StorePostgres, StoreDisabled:
	default:
		return invalid("unknown store %q", c.Store)
	}
	if c.Store == StorePostgres && c.DatabaseURL == "" {
		return invalid("store %q requires database_url", c.Store)
	}
	if c.PageSize <= 0 {
		return invalid("page_size must be positive, got %d", c.PageSize)
	}
	if len(c.AllowedWindowDays) == 0 {
		return invalid("allowed_window_days must not be empty")
	}
	for _, d := range c.AllowedWindowDays {
		if d <= 0 {
			return invalid("allowed_window_days contains non-positive %d", d)
		}
	}
	if !slices.Contains(c.AllowedWindowDays, c.DefaultWindowDays) {
		return invalid("default_window_days %d not in allowed_window_days", c.DefaultWindowDays)
	}
	if c.RecentActivityLimit <= 0 {
		return invalid("recent_activity_limit must be positive, got %d", c.RecentActivityLimit)
	}
	if c.HeatmapOffsetHours < -12 || c.HeatmapOffsetHours > 14 {
		return invalid("heatmap_offset_hours out of range: %d", c.HeatmapOffsetHours)
	}
	if c.GeoBatchLimit <= 0 || c.GeoBatchLimit > 100 {
		return invalid("geo_batch_limit must be within 1..100, got %d", c.GeoBatchLimit)
	}
	if c.GeoCacheSize < 0 || c.GeoCacheTTLSeconds < 0 {
		return invalid("geo cache size and ttl must not be negative")
	}
	for _, name := range []string{c.MetricsNamespace, c.MetricsSubsystem} {
		if name != "" && !metricNameRE.MatchString(name) {
			return invalid("metric name part %q must match %s", name, metricNameRE)
		}
	}
	for k := range c.MetricsLabels {
		if !metricNameRE.MatchString(k) || strings.HasPrefix(k, "__") {
			return invalid("metrics_labels key %q is not a valid label name", k)
		}
	}
	for i := 1; i < len(c.MetricsBucketsMS); i++ {
		if c.MetricsBucketsMS[i] <= c.MetricsBucketsMS[i-1] {
			return invalid("metrics_buckets_ms must be strictly ascending")
		}
	}
	return nil
}

// normalize trims whitespace from endpoints and strips it from the key.
// Copy-pasted service keys frequently carry line breaks.
func (c *Config) normalize() {
	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	c.BackendKey = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, c.BackendKey)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
}

func firstEnv(keys []string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
