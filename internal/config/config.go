// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory snapshot queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingest workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the snapshot id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboards/{category}?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DefaultLeaderboardLimit applies when limit is omitted.
	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`

	// SecondaryTitleLimit is how many secondary titles a summary carries.
	SecondaryTitleLimit int `koanf:"secondary_title_limit"`

	// MaxPageSize caps GET /players?limit.
	MaxPageSize int `koanf:"max_page_size"`

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	MojangEnabled           bool    `koanf:"mojang_enabled"`
	MojangSessionURL        string  `koanf:"mojang_session_url"`
	MojangCacheTTLHours     int     `koanf:"mojang_cache_ttl_hours"`
	MojangRequestsPerSecond float64 `koanf:"mojang_requests_per_second"`
	MojangTimeoutMS         int     `koanf:"mojang_timeout_ms"`

	// TotalSpecies is the pokédex completion denominator.
	TotalSpecies int `koanf:"total_species"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		QueueSize:               10_000,
		WorkerCount:             runtime.NumCPU() * 2,
		DedupeSize:              100_000,
		MaxLeaderboardLimit:     100,
		DefaultLeaderboardLimit: 10,
		SecondaryTitleLimit:     3,
		MaxPageSize:             100,
		CORSAllowedOrigins:      []string{"*"},
		MojangEnabled:           true,
		MojangSessionURL:        "https://sessionserver.mojang.com/session/minecraft/profile",
		MojangCacheTTLHours:     7 * 24,
		MojangRequestsPerSecond: 5,
		MojangTimeoutMS:         3000,
		TotalSpecies:            722,
	}
}

// MojangCacheTTL returns the username cache lifetime.
func (c *Config) MojangCacheTTL() time.Duration {
	return time.Duration(c.MojangCacheTTLHours) * time.Hour
}

// MojangTimeout returns the per-request timeout for username lookups.
func (c *Config) MojangTimeout() time.Duration {
	return time.Duration(c.MojangTimeoutMS) * time.Millisecond
}

// Validate reports the first setting that cannot run.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.DefaultLeaderboardLimit <= 0 || c.DefaultLeaderboardLimit > c.MaxLeaderboardLimit:
		return fmt.Errorf("%w: default_leaderboard_limit must be in [1, %d]", ErrInvalidConfig, c.MaxLeaderboardLimit)
	case c.SecondaryTitleLimit < 0:
		return fmt.Errorf("%w: secondary_title_limit must not be negative", ErrInvalidConfig)
	case c.MaxPageSize <= 0:
		return fmt.Errorf("%w: max_page_size must be positive", ErrInvalidConfig)
	case c.TotalSpecies <= 0:
		return fmt.Errorf("%w: total_species must be positive", ErrInvalidConfig)
	case c.MojangEnabled && c.MojangSessionURL == "":
		return fmt.Errorf("%w: mojang_session_url must be set when mojang_enabled", ErrInvalidConfig)
	case c.MojangEnabled && c.MojangRequestsPerSecond <= 0:
		return fmt.Errorf("%w: mojang_requests_per_second must be positive", ErrInvalidConfig)
	}
	return nil
}
