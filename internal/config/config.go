// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers a YAML file and PULSE_* env vars on top.
// - Validation failures wrap ErrInvalidConfig, loading failures ErrLoadConfig.
package config

import (
	"strings"
)

// Store selectors.
const (
	StoreAuto      = "auto"
	StorePostgREST = "postgrest"
	StorePostgres  = "postgres"
	StoreDisabled  = "disabled"
)

// minBackendKeyLength is the shortest service key considered usable.
const minBackendKeyLength = 11

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the backing store: auto, postgrest, postgres or disabled.
	// auto prefers DatabaseURL, then the managed backend credentials.
	Store string `koanf:"store"`

	// BackendURL and BackendKey address the managed backend REST interface.
	BackendURL string `koanf:"backend_url"`
	BackendKey string `koanf:"backend_key"`

	// DatabaseURL is a Postgres DSN for direct SQL access.
	DatabaseURL string `koanf:"database_url"`

	// PageSize bounds rows per REST page.
	PageSize int `koanf:"page_size"`

	// QueryTimeoutMS caps a single metric computation.
	QueryTimeoutMS int `koanf:"query_timeout_ms"`

	// DefaultWindowDays is used when a request omits or mangles ?days.
	DefaultWindowDays int `koanf:"default_window_days"`

	// AllowedWindowDays is the allow-list for ?days.
	AllowedWindowDays []int `koanf:"allowed_window_days"`

	// RecentActivityLimit caps the live feed.
	RecentActivityLimit int `koanf:"recent_activity_limit"`

	// HeatmapOffsetHours is the fixed UTC offset for heatmap buckets.
	HeatmapOffsetHours int `koanf:"heatmap_offset_hours"`

	// GeoEndpoint is the batch geolocation URL.
	GeoEndpoint string `koanf:"geo_endpoint"`

	// GeoBatchLimit caps IPs per lookup (the public API allows 100).
	GeoBatchLimit int `koanf:"geo_batch_limit"`

	// GeoTimeoutMS bounds one geolocation request.
	GeoTimeoutMS int `koanf:"geo_timeout_ms"`

	// GeoCacheSize is the in-process cache capacity; 0 disables caching.
	GeoCacheSize int `koanf:"geo_cache_size"`

	// GeoCacheTTLSeconds is how long a resolved IP is reused.
	GeoCacheTTLSeconds int `koanf:"geo_cache_ttl_seconds"`

	// RedisURL switches the geolocation cache to Redis when set.
	RedisURL string `koanf:"redis_url"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsSubsystem follows the namespace in metric names.
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsBucketsMS overrides the latency histogram buckets.
	MetricsBucketsMS []float64 `koanf:"metrics_buckets_ms"`

	// MetricsLabels are constant labels (env, region) added to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Store:               StoreAuto,
		PageSize:            1000,
		QueryTimeoutMS:      15_000,
		DefaultWindowDays:   30,
		AllowedWindowDays:   []int{7, 30, 90},
		RecentActivityLimit: 50,
		HeatmapOffsetHours:  9,
		GeoEndpoint:         "http://ip-api.com/batch?fields=status,city,regionName,lat,lon,query",
		GeoBatchLimit:       100,
		GeoTimeoutMS:        10_000,
		GeoCacheSize:        4096,
		GeoCacheTTLSeconds:  86_400,
		MetricsNamespace:    "pulse",
		MetricsSubsystem:    "dashboard",
	}
}

// BackendConfigured reports whether the managed backend credentials look usable.
func (c *Config) BackendConfigured() bool {
	return strings.HasPrefix(c.BackendURL, "http") && len(c.BackendKey) >= minBackendKeyLength
}

// ResolveStore turns StoreAuto into a concrete store kind.
func (c *Config) ResolveStore() string {
	if c.Store != StoreAuto {
		return c.Store
	}
	switch {
	case c.DatabaseURL != "":
		return StorePostgres
	case c.BackendConfigured():
		return StorePostgREST
	default:
		return StoreDisabled
	}
}
