// Package ratelimit throttles API clients with one token bucket per key.
package ratelimit

import (
	"errors"
	"fmt"
	"time"

	envconfig "vuln-feed/pkg/config"
)

// Config contains the configuration for rate limiting.
type Config struct {
	// Enabled turns limiting off entirely when false.
	Enabled bool

	// RequestsPerMinute is the sustained rate per key.
	RequestsPerMinute int

	// Burst is the number of requests a fresh key may make at once.
	Burst int

	// MaxKeys caps tracked keys; the least recently seen key is evicted.
	MaxKeys int

	// IdleTTL removes keys not seen for this long.
	IdleTTL time.Duration

	// CleanupInterval is how often Run sweeps idle keys.
	CleanupInterval time.Duration
}

// DefaultConfig returns 60 requests/minute with a burst of 20.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             20,
		MaxKeys:           10000,
		IdleTTL:           10 * time.Minute,
		CleanupInterval:   time.Minute,
	}
}

// LoadConfigFromEnv reads RATE_LIMIT_ENABLED, RATE_LIMIT_RPM,
// RATE_LIMIT_BURST, RATE_LIMIT_MAX_KEYS and RATE_LIMIT_IDLE_TTL.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		Enabled:           envconfig.GetEnvBool("RATE_LIMIT_ENABLED", def.Enabled),
		RequestsPerMinute: envconfig.GetEnvInt("RATE_LIMIT_RPM", def.RequestsPerMinute),
		Burst:             envconfig.GetEnvInt("RATE_LIMIT_BURST", def.Burst),
		MaxKeys:           envconfig.GetEnvInt("RATE_LIMIT_MAX_KEYS", def.MaxKeys),
		IdleTTL:           envconfig.GetEnvDuration("RATE_LIMIT_IDLE_TTL", def.IdleTTL),
		CleanupInterval:   def.CleanupInterval,
	}
}

// Validate checks that every limit is positive.
func (c Config) Validate() error {
	var errs []error
	if c.RequestsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("RequestsPerMinute must be positive, got %d", c.RequestsPerMinute))
	}
	if c.Burst <= 0 {
		errs = append(errs, fmt.Errorf("Burst must be positive, got %d", c.Burst))
	}
	if c.MaxKeys <= 0 {
		errs = append(errs, fmt.Errorf("MaxKeys must be positive, got %d", c.MaxKeys))
	}
	if c.IdleTTL <= 0 {
		errs = append(errs, fmt.Errorf("IdleTTL must be positive, got %s", c.IdleTTL))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("CleanupInterval must be positive, got %s", c.CleanupInterval))
	}
	return errors.Join(errs...)
}
