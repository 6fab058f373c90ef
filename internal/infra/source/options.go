package source

import (
	"log/slog"
	"time"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/resilience/retry"
)

const (
	defaultPageSize = 100
	defaultMaxPages = 50
)

// Options tunes one adapter. Zero values select the adapter's defaults.
type Options struct {
	// Endpoint overrides the upstream URL.
	Endpoint string

	// Timeout bounds each request attempt.
	Timeout time.Duration

	PageSize int

	// MaxPages caps pagination as a guard against feeds that never return
	// an empty page.
	MaxPages int

	// Retry overrides the page retry policy (3 attempts, [1s, 2s) waits).
	Retry retry.Config

	// RetryClientErrors also retries 4xx responses.
	RetryClientErrors bool

	// Now is the clock used for lookback windows.
	Now func() time.Time

	// Location decides which calendar day "today" is. Nil keeps the
	// clock's own zone.
	Location *time.Location
}

func (o Options) retryConfig() retry.Config {
	cfg := o.Retry
	if cfg.MaxAttempts == 0 {
		cfg = retry.FeedPageConfig()
	}
	if o.RetryClientErrors {
		cfg.RetryClientErrors = true
	}
	return cfg
}

func (o Options) endpoint(def string) string {
	if o.Endpoint != "" {
		return o.Endpoint
	}
	return def
}

func (o Options) pageSize() int {
	if o.PageSize > 0 {
		return o.PageSize
	}
	return defaultPageSize
}

func (o Options) maxPages() int {
	if o.MaxPages > 0 {
		return o.MaxPages
	}
	return defaultMaxPages
}

func (o Options) now() time.Time {
	t := time.Now()
	if o.Now != nil {
		t = o.Now()
	}
	if o.Location != nil {
		t = t.In(o.Location)
	}
	return t
}

// newRecord builds a record, logging and skipping rows that fail validation.
func newRecord(p entity.VulnParams) (*entity.Vuln, bool) {
	v, err := entity.NewVuln(p)
	if err != nil {
		slog.Debug("skipping upstream row",
			slog.String("source", p.Source),
			slog.String("name", p.Name),
			slog.Any("error", err))
		return nil, false
	}
	return v, true
}

// earlierThan reports whether the date in raw sorts before target. Rows
// with no usable date never stop pagination.
func earlierThan(raw, target string) bool {
	d, err := entity.NormalizeDate(raw)
	if err != nil || d == "" {
		return false
	}
	return d < target
}
