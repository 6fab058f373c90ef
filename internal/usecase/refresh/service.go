// Package refresh keeps a periodically refreshed snapshot of recent
// vulnerability records and reports newly seen ones to the notifier.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/observability/logging"
	"vuln-feed/internal/usecase/collect"
)

// DefaultLookbackDays is the refresh window, today included.
const DefaultLookbackDays = 3

// Collector runs the adapters.
type Collector interface {
	FetchRange(ctx context.Context, start, end string, sources []collect.Source) (*collect.Report, error)
	SearchAll(ctx context.Context, keyword string, sources []collect.Source, maxConcurrency int) (*collect.Report, error)
}

// Notifier receives records not seen by any earlier refresh.
type Notifier interface {
	NotifyNewVulns(ctx context.Context, vulns []*entity.Vuln) error
}

// Config controls the refresh window and search fan-out.
type Config struct {
	// LookbackDays is how many days, ending today, each refresh covers.
	LookbackDays int

	// SearchConcurrency bounds Search. Zero means collect.DefaultSearchConcurrency.
	SearchConcurrency int

	// Location decides what "today" is. Nil means time.Local.
	Location *time.Location

	// Now is overridable for tests.
	Now func() time.Time
}

// Service owns the latest snapshot.
type Service struct {
	collector Collector
	sources   []collect.Source
	notifier  Notifier
	cfg       Config

	seq   Sequencer
	store store

	mu     sync.Mutex
	seen   map[string]string // dedup key -> record date
	seeded bool
}

// NewService creates a refresh Service. notifier may be nil.
func NewService(collector Collector, sources []collect.Source, notifier Notifier, cfg Config) *Service {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		collector: collector,
		sources:   sources,
		notifier:  notifier,
		cfg:       cfg,
		seen:      make(map[string]string),
	}
}

// Window returns the [start, end] dates the next refresh covers.
func (s *Service) Window() (start, end string) {
	today := s.cfg.Now().In(s.cfg.Location)
	return today.AddDate(0, 0, -(s.cfg.LookbackDays - 1)).Format(entity.DateLayout),
		today.Format(entity.DateLayout)
}

// Refresh fetches the lookback window and publishes it as the latest
// snapshot. Records absent from every earlier refresh are handed to the
// notifier; the first refresh only seeds that set.
//
// If another refresh started meanwhile, the result is discarded and
// ErrStale returned.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	token := s.seq.Next()
	ctx, runID := logging.WithRunID(ctx)
	logger := logging.FromContext(ctx)

	start, end := s.Window()
	began := time.Now()
	report, err := s.collector.FetchRange(ctx, start, end, s.sources)
	if err != nil {
		return nil, fmt.Errorf("refresh %s..%s: %w", start, end, err)
	}

	if !s.seq.IsCurrent(token) {
		logger.Info("discarding stale refresh result", slog.Int("records", len(report.Records)))
		return nil, ErrStale
	}

	snap := &Snapshot{
		Records:     report.Records,
		Statuses:    report.Statuses,
		Start:       start,
		End:         end,
		RefreshedAt: s.cfg.Now(),
	}

	fresh, seeded := s.diff(start, report.Records)
	if seeded {
		snap.NewRecords = len(fresh)
	}
	s.store.publish(snap)

	for _, st := range report.Failed() {
		logger.Warn("source failed during refresh",
			slog.String("source", st.Source),
			slog.String("date", st.Date),
			slog.Any("error", st.Err))
	}
	logger.Info("refresh completed",
		slog.String("run_id", runID),
		slog.String("start", start),
		slog.String("end", end),
		slog.Int("records", len(snap.Records)),
		slog.Int("new", snap.NewRecords),
		slog.Int("duplicates", report.Duplicates),
		slog.Bool("partial", report.Partial()),
		slog.Duration("duration", time.Since(began)))

	if !seeded || len(fresh) == 0 || s.notifier == nil {
		return snap, nil
	}
	if err := s.notifier.NotifyNewVulns(ctx, fresh); err != nil {
		logger.Warn("notification dispatch failed", slog.Any("error", err))
	}
	return snap, nil
}

// diff records keys of records and returns those not seen before. seeded is
// false on the first call. Keys dated before start are forgotten.
func (s *Service) diff(start string, records []*entity.Vuln) (fresh []*entity.Vuln, seeded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, date := range s.seen {
		if date != "" && date < start {
			delete(s.seen, key)
		}
	}
	for _, v := range records {
		key := v.DedupKey()
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = v.Date()
		fresh = append(fresh, v)
	}

	seeded = s.seeded
	s.seeded = true
	return fresh, seeded
}

// Latest returns the most recently published snapshot.
func (s *Service) Latest() (*Snapshot, error) {
	snap := s.store.load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Search runs a keyword search over all configured sources.
func (s *Service) Search(ctx context.Context, keyword string) (*collect.Report, error) {
	ctx, _ = logging.WithRunID(ctx)
	return s.collector.SearchAll(ctx, keyword, s.sources, s.cfg.SearchConcurrency)
}

// Sources returns the configured adapters in precedence order.
func (s *Service) Sources() []collect.Source {
	return s.sources
}
