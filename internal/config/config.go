// Package config provides environment-driven configuration for txlink.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/persistorai/txlink/internal/ledger"
	"github.com/persistorai/txlink/internal/models"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	// Ledger API.
	EtherscanAPIKey       Secret
	EtherscanURL          string
	LedgerRate            float64
	LedgerPenaltyInterval time.Duration
	LedgerTimeout         time.Duration
	LedgerRetryBase       time.Duration
	LedgerMaxAttempts     int
	LedgerPageSize        int
	LedgerMaxResults      int
	LedgerCacheSize       int
	LedgerCacheTTL        time.Duration

	// Search.
	SearchWorkers   int
	SearchQueueSize int

	// HTTP server.
	Port           string
	ListenHost     string
	CORSOrigins    []string
	ServerAPIKey   Secret
	RateLimit      float64
	RateLimitBurst int

	// Logging.
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		EtherscanAPIKey: Secret(envOrDefault("ETHERSCAN_API_KEY", "")),
		EtherscanURL:    envOrDefault("ETHERSCAN_URL", ledger.DefaultBaseURL),
		Port:            envOrDefault("PORT", "3040"),
		ListenHost:      envOrDefault("LISTEN_HOST", "127.0.0.1"),
		ServerAPIKey:    Secret(envOrDefault("SERVER_API_KEY", "")),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.LedgerRate, err = envFloat("LEDGER_RATE", ledger.DefaultRate); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = envFloat("RATE_LIMIT", 10); err != nil {
		return nil, err
	}

	ints := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"LEDGER_MAX_ATTEMPTS", ledger.DefaultMaxAttempts, &cfg.LedgerMaxAttempts},
		{"LEDGER_PAGE_SIZE", ledger.DefaultPageSize, &cfg.LedgerPageSize},
		{"LEDGER_MAX_RESULTS", ledger.DefaultMaxResults, &cfg.LedgerMaxResults},
		{"LEDGER_CACHE_SIZE", ledger.DefaultCacheSize, &cfg.LedgerCacheSize},
		{"SEARCH_WORKERS", 2, &cfg.SearchWorkers},
		{"SEARCH_QUEUE_SIZE", 100, &cfg.SearchQueueSize},
		{"RATE_LIMIT_BURST", 20, &cfg.RateLimitBurst},
	}
	for _, e := range ints {
		if *e.dst, err = envInt(e.key, e.fallback); err != nil {
			return nil, err
		}
	}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"LEDGER_PENALTY_INTERVAL", ledger.DefaultPenaltyInterval, &cfg.LedgerPenaltyInterval},
		{"LEDGER_TIMEOUT", ledger.DefaultTimeout, &cfg.LedgerTimeout},
		{"LEDGER_RETRY_BASE", ledger.DefaultRetryBase, &cfg.LedgerRetryBase},
		{"LEDGER_CACHE_TTL", ledger.DefaultCacheTTL, &cfg.LedgerCacheTTL},
	}
	for _, e := range durations {
		if *e.dst, err = envDuration(e.key, e.fallback); err != nil {
			return nil, err
		}
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// LedgerOptions returns the ledger client options described by the config.
// The throttle and cache are shared process-wide, so callers build them once.
func (c *Config) LedgerOptions() []ledger.Option {
	return []ledger.Option{
		ledger.WithBaseURL(c.EtherscanURL),
		ledger.WithAPIKey(c.EtherscanAPIKey.Value()),
		ledger.WithTimeout(c.LedgerTimeout),
		ledger.WithRetry(c.LedgerMaxAttempts, c.LedgerRetryBase),
		ledger.WithPageDefaults(models.PageOptions{
			PageSize:   c.LedgerPageSize,
			MaxResults: c.LedgerMaxResults,
		}),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}

	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 500ms or 10s: %w", key, err)
	}

	return d, nil
}
