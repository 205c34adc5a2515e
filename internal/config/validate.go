package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Upper bounds for tunables that multiply remote load.
const (
	maxLedgerRate     = 50
	maxLedgerAttempts = 10
	maxLedgerPageSize = 10000
	maxSearchWorkers  = 16
)

func (c *Config) validate() error {
	if err := c.validateNetwork(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	if err := c.validateLedger(); err != nil {
		return err
	}

	if err := c.validateSearch(); err != nil {
		return err
	}

	if err := c.validateLogging(); err != nil {
		return err
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Loopback for local runs, 0.0.0.0/:: for containers.
	validHosts := map[string]bool{
		"127.0.0.1": true,
		"::1":       true,
		"localhost": true,
		"0.0.0.0":   true,
		"::":        true,
	}
	if !validHosts[c.ListenHost] {
		return fmt.Errorf("LISTEN_HOST must be a loopback address or 0.0.0.0/:: for containers (got %q)", c.ListenHost)
	}

	if c.RateLimit <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT must be positive and RATE_LIMIT_BURST at least 1")
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func (c *Config) validateLedger() error {
	u, err := url.ParseRequestURI(c.EtherscanURL)
	if err != nil {
		return fmt.Errorf("ETHERSCAN_URL is not a valid URL: %w", err)
	}

	if u.Scheme != "https" && !isLocalhost(c.EtherscanURL) {
		return fmt.Errorf("ETHERSCAN_URL must use HTTPS for non-localhost hosts")
	}

	if c.LedgerRate <= 0 || c.LedgerRate > maxLedgerRate {
		return fmt.Errorf("LEDGER_RATE must be between 0 and %d requests per second", maxLedgerRate)
	}

	if c.LedgerMaxAttempts < 1 || c.LedgerMaxAttempts > maxLedgerAttempts {
		return fmt.Errorf("LEDGER_MAX_ATTEMPTS must be between 1 and %d", maxLedgerAttempts)
	}

	if c.LedgerPageSize < 1 || c.LedgerPageSize > maxLedgerPageSize {
		return fmt.Errorf("LEDGER_PAGE_SIZE must be between 1 and %d", maxLedgerPageSize)
	}

	if c.LedgerMaxResults < c.LedgerPageSize {
		return fmt.Errorf("LEDGER_MAX_RESULTS must be at least LEDGER_PAGE_SIZE")
	}

	if c.LedgerCacheSize < 0 {
		return fmt.Errorf("LEDGER_CACHE_SIZE must not be negative (0 disables the cache)")
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"LEDGER_PENALTY_INTERVAL", c.LedgerPenaltyInterval},
		{"LEDGER_TIMEOUT", c.LedgerTimeout},
		{"LEDGER_RETRY_BASE", c.LedgerRetryBase},
		{"LEDGER_CACHE_TTL", c.LedgerCacheTTL},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}

	return nil
}

func (c *Config) validateSearch() error {
	if c.SearchWorkers < 1 || c.SearchWorkers > maxSearchWorkers {
		return fmt.Errorf("SEARCH_WORKERS must be an integer between 1 and %d", maxSearchWorkers)
	}

	if c.SearchQueueSize < 1 {
		return fmt.Errorf("SEARCH_QUEUE_SIZE must be at least 1")
	}

	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be 'text' or 'json', got %q", c.LogFormat)
	}

	return nil
}

// isLocalhost returns true if the given address points to a loopback address.
func isLocalhost(addr string) bool {
	u, err := url.Parse(addr)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
