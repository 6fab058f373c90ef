// Package worker holds the runtime plumbing of the refresh worker:
// fail-open configuration, health endpoints and job metrics.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vuln-feed/internal/pkg/config"
)

// WorkerConfig controls the refresh schedule and the servers of the worker.
//
// Environment variables:
//   - REFRESH_SCHEDULE: cron expression (default "*/30 * * * *")
//   - REFRESH_TIMEZONE: IANA timezone name (default "Asia/Shanghai")
//   - LOOKBACK_DAYS: days per refresh, 1-30 (default 3)
//   - REFRESH_TIMEOUT: 1m-2h (default 10m)
//   - SEARCH_CONCURRENCY: 1-20 (default 5)
//   - NOTIFY_MAX_CONCURRENT: 1-50 (default 10)
//   - HEALTH_PORT: 1024-65535 (default 9091)
//   - METRICS_PORT: 1024-65535 (default 9090)
type WorkerConfig struct {
	// RefreshSchedule is evaluated in Timezone.
	RefreshSchedule string

	// Timezone also decides which calendar day is "today".
	Timezone string

	LookbackDays        int
	RefreshTimeout      time.Duration
	SearchConcurrency   int
	NotifyMaxConcurrent int
	HealthPort          int
	MetricsPort         int
}

// DefaultConfig returns the defaults listed on WorkerConfig.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		RefreshSchedule:     "*/30 * * * *",
		Timezone:            "Asia/Shanghai",
		LookbackDays:        3,
		RefreshTimeout:      10 * time.Minute,
		SearchConcurrency:   5,
		NotifyMaxConcurrent: 10,
		HealthPort:          9091,
		MetricsPort:         9090,
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate reports every invalid field at once.
func (c *WorkerConfig) Validate() error {
	var errs []error
	check := func(field string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	check("refresh schedule", config.ValidateCronSchedule(c.RefreshSchedule))
	check("timezone", config.ValidateTimezone(c.Timezone))
	check("lookback days", validLookback(c.LookbackDays))
	check("refresh timeout", validTimeout(c.RefreshTimeout))
	check("search concurrency", validSearchConcurrency(c.SearchConcurrency))
	check("notify max concurrent", validNotifyConcurrency(c.NotifyMaxConcurrent))
	check("health port", config.ValidatePort(c.HealthPort))
	check("metrics port", config.ValidatePort(c.MetricsPort))
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health port and metrics port must differ (both %d)", c.HealthPort))
	}

	return errors.Join(errs...)
}

func validLookback(v int) error          { return config.ValidateIntRange(v, 1, 30) }
func validSearchConcurrency(v int) error { return config.ValidateIntRange(v, 1, 20) }
func validNotifyConcurrency(v int) error { return config.ValidateIntRange(v, 1, 50) }
func validTimeout(d time.Duration) error { return config.ValidateDuration(d, time.Minute, 2*time.Hour) }

// LoadConfigFromEnv loads WorkerConfig from the environment. Invalid values
// are replaced by their defaults, logged at Warn and counted in metrics; the
// returned config is always usable.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	cfg := DefaultConfig()
	fallback := false

	note := func(field string, applied bool, warning string) {
		if !applied {
			return
		}
		fallback = true
		if metrics != nil {
			metrics.RecordFallback(field)
		}
		logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}

	s := config.LoadEnvWithFallback("REFRESH_SCHEDULE", cfg.RefreshSchedule, config.ValidateCronSchedule)
	cfg.RefreshSchedule = s.Value
	note("refresh_schedule", s.FallbackApplied, s.Warning)

	s = config.LoadEnvWithFallback("REFRESH_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = s.Value
	note("timezone", s.FallbackApplied, s.Warning)

	i := config.LoadEnvInt("LOOKBACK_DAYS", cfg.LookbackDays, validLookback)
	cfg.LookbackDays = i.Value
	note("lookback_days", i.FallbackApplied, i.Warning)

	d := config.LoadEnvDuration("REFRESH_TIMEOUT", cfg.RefreshTimeout, validTimeout)
	cfg.RefreshTimeout = d.Value
	note("refresh_timeout", d.FallbackApplied, d.Warning)

	i = config.LoadEnvInt("SEARCH_CONCURRENCY", cfg.SearchConcurrency, validSearchConcurrency)
	cfg.SearchConcurrency = i.Value
	note("search_concurrency", i.FallbackApplied, i.Warning)

	i = config.LoadEnvInt("NOTIFY_MAX_CONCURRENT", cfg.NotifyMaxConcurrent, validNotifyConcurrency)
	cfg.NotifyMaxConcurrent = i.Value
	note("notify_max_concurrent", i.FallbackApplied, i.Warning)

	i = config.LoadEnvInt("HEALTH_PORT", cfg.HealthPort, config.ValidatePort)
	cfg.HealthPort = i.Value
	note("health_port", i.FallbackApplied, i.Warning)

	i = config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, config.ValidatePort)
	cfg.MetricsPort = i.Value
	note("metrics_port", i.FallbackApplied, i.Warning)

	if cfg.HealthPort == cfg.MetricsPort {
		defaults := DefaultConfig()
		note("metrics_port", true, fmt.Sprintf("metrics port %d collides with health port, using %d and %d",
			cfg.MetricsPort, defaults.HealthPort, defaults.MetricsPort))
		cfg.HealthPort, cfg.MetricsPort = defaults.HealthPort, defaults.MetricsPort
	}

	if metrics != nil {
		metrics.SetFallbackActive(fallback)
		metrics.RecordLoadTimestamp()
	}
	return &cfg
}
