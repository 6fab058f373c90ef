package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	cfg     Config
	clock   Clock
	metrics *Metrics

	mu      sync.Mutex
	entries map[string]*entry
}

// NewLimiter creates a Limiter. metrics may be nil.
func NewLimiter(cfg Config, clock Clock, metrics *Metrics) *Limiter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Limiter{
		cfg:     cfg,
		clock:   clock,
		metrics: metrics,
		entries: make(map[string]*entry),
	}
}

// Allow consumes one token for key.
func (l *Limiter) Allow(key string) Decision {
	now := l.clock.Now()

	l.mu.Lock()
	e := l.entry(key, now)
	d := Decision{Key: key, Limit: l.cfg.Burst}
	if e.lim.AllowN(now, 1) {
		d.Allowed = true
		d.Remaining = max(int(e.lim.TokensAt(now)), 0)
	} else {
		r := e.lim.ReserveN(now, 1)
		d.RetryAfter = r.DelayFrom(now)
		r.CancelAt(now)
	}
	n := len(l.entries)
	l.mu.Unlock()

	l.metrics.recordDecision(d.Allowed)
	l.metrics.setActiveKeys(n)
	return d
}

// entry returns the bucket for key, creating it and evicting the least
// recently seen key when at capacity. Callers hold l.mu.
func (l *Limiter) entry(key string, now time.Time) *entry {
	if e, ok := l.entries[key]; ok {
		e.lastSeen = now
		return e
	}
	if len(l.entries) >= l.cfg.MaxKeys {
		l.evictOldest()
	}
	e := &entry{
		lim:      rate.NewLimiter(rate.Limit(float64(l.cfg.RequestsPerMinute)/60), l.cfg.Burst),
		lastSeen: now,
	}
	l.entries[key] = e
	return e
}

// evictOldest is a linear scan; eviction only happens at capacity.
func (l *Limiter) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range l.entries {
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey, oldest = k, e.lastSeen
		}
	}
	if oldestKey != "" {
		delete(l.entries, oldestKey)
		l.metrics.recordEvictions("capacity", 1)
	}
}

// Cleanup drops keys idle for longer than IdleTTL and returns how many.
func (l *Limiter) Cleanup() int {
	cutoff := l.clock.Now().Add(-l.cfg.IdleTTL)

	l.mu.Lock()
	removed := 0
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
			removed++
		}
	}
	n := len(l.entries)
	l.mu.Unlock()

	l.metrics.recordEvictions("idle", removed)
	l.metrics.setActiveKeys(n)
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Run sweeps idle keys every CleanupInterval until ctx is done.
func (l *Limiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Cleanup()
		}
	}
}
