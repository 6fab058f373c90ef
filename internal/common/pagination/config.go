// Package pagination pages in-memory result lists for the query API.
package pagination

import envconfig "vuln-feed/pkg/config"

// Config holds pagination settings.
type Config struct {
	DefaultLimit int // Items per page when ?limit= is absent
	MaxLimit     int // Largest accepted ?limit=
}

// DefaultConfig returns limit=50, max=500.
func DefaultConfig() Config {
	return Config{
		DefaultLimit: 50,
		MaxLimit:     500,
	}
}

// LoadFromEnv reads PAGINATION_DEFAULT_LIMIT and PAGINATION_MAX_LIMIT.
// A default above the maximum is clamped to it.
func LoadFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		DefaultLimit: envconfig.GetEnvInt("PAGINATION_DEFAULT_LIMIT", def.DefaultLimit),
		MaxLimit:     envconfig.GetEnvInt("PAGINATION_MAX_LIMIT", def.MaxLimit),
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxLimit <= 0 {
		c.MaxLimit = def.MaxLimit
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = def.DefaultLimit
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	return c
}
