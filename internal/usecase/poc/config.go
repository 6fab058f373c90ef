package poc

import (
	"time"

	envconfig "vuln-feed/pkg/config"
)

// Config holds the resolver settings.
type Config struct {
	// Token is the GitHub personal access token; empty searches anonymously.
	Token string

	// CacheFile overrides the default cache location.
	CacheFile string

	CacheTTL time.Duration
	MaxHits  int
}

// LoadConfigFromEnv reads GITHUB_TOKEN, POC_CACHE_FILE, POC_CACHE_TTL and
// POC_MAX_HITS.
func LoadConfigFromEnv() Config {
	return Config{
		Token:     envconfig.GetEnvString("GITHUB_TOKEN", ""),
		CacheFile: envconfig.GetEnvString("POC_CACHE_FILE", ""),
		CacheTTL:  envconfig.GetEnvDuration("POC_CACHE_TTL", 24*time.Hour),
		MaxHits:   envconfig.GetEnvInt("POC_MAX_HITS", DefaultMaxHits),
	}
}
