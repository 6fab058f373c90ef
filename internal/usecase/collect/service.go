// Package collect aggregates vulnerability records across feed adapters:
// date-range fetches with cross-source dedup and bounded fan-out keyword
// search.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/observability/logging"
	"vuln-feed/internal/observability/metrics"
	"vuln-feed/internal/observability/tracing"
)

// DefaultSearchConcurrency bounds SearchAll when the caller passes <= 0.
const DefaultSearchConcurrency = 5

// Service runs adapters and merges their output. It holds no state; the
// zero value is ready to use.
type Service struct{}

// NewService creates a collect Service.
func NewService() *Service {
	return &Service{}
}

// FetchRange fetches every date in [start, end] from each source.
//
// Dates are walked in ascending order and sources in the order given. The
// first record seen for a dedup key wins, so sources listed earlier take
// precedence. A failing source is recorded in the report and skipped for
// that date; the call itself only fails on invalid input.
func (s *Service) FetchRange(ctx context.Context, start, end string, sources []Source) (*Report, error) {
	from, to, err := entity.ValidateDateRange(start, end)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	logger := logging.FromContext(ctx)
	report := &Report{}
	d := newDeduper()

	for _, date := range entity.DatesBetween(from, to) {
		for _, src := range sources {
			if ctx.Err() != nil {
				return report, fmt.Errorf("fetch range: %w", ctx.Err())
			}

			batch, status := s.call(ctx, src, "fetch", date, func(ctx context.Context) (Batch, error) {
				return src.FetchByDate(ctx, date)
			})
			report.Statuses = append(report.Statuses, status)
			if status.Err != nil {
				logger.Warn("source fetch failed",
					slog.String("source", src.Name()),
					slog.String("date", date),
					slog.Any("error", status.Err))
				continue
			}

			kept, dropped := d.add(batch.Records)
			report.Records = append(report.Records, kept...)
			report.Duplicates += dropped
		}
	}

	metrics.RecordDuplicates(report.Duplicates)
	logger.Info("range fetch completed",
		slog.String("start", start),
		slog.String("end", end),
		slog.Int("sources", len(sources)),
		slog.Int("records", len(report.Records)),
		slog.Int("duplicates", report.Duplicates),
		slog.Int("failed", len(report.Failed())))

	return report, nil
}

// SearchAll searches every source concurrently, at most maxConcurrency at
// a time (DefaultSearchConcurrency when <= 0), and returns once all have
// finished. Results are not deduplicated; record order follows completion
// order.
func (s *Service) SearchAll(ctx context.Context, keyword string, sources []Source, maxConcurrency int) (*Report, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultSearchConcurrency
	}

	logger := logging.FromContext(ctx)
	sem := semaphore.NewWeighted(int64(maxConcurrency))
	report := &Report{}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, src := range sources {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled while waiting: record the sources never started.
			mu.Lock()
			report.Statuses = append(report.Statuses, SourceStatus{Source: src.Name(), Err: err})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			defer sem.Release(1)

			metrics.SearchesInFlight.Inc()
			defer metrics.SearchesInFlight.Dec()

			batch, status := s.call(ctx, src, "search", "", func(ctx context.Context) (Batch, error) {
				return src.Search(ctx, keyword)
			})
			if status.Err != nil {
				logger.Warn("source search failed",
					slog.String("source", src.Name()),
					slog.String("keyword", keyword),
					slog.Any("error", status.Err))
			}

			mu.Lock()
			defer mu.Unlock()
			report.Statuses = append(report.Statuses, status)
			report.Records = append(report.Records, batch.Records...)
		}(src)
	}

	wg.Wait()

	logger.Info("search completed",
		slog.String("keyword", keyword),
		slog.Int("sources", len(sources)),
		slog.Int("records", len(report.Records)),
		slog.Int("failed", len(report.Failed())))

	return report, nil
}

// call runs one adapter operation inside a span and records its metrics.
func (s *Service) call(ctx context.Context, src Source, op, date string, fn func(context.Context) (Batch, error)) (Batch, SourceStatus) {
	ctx, span := tracing.StartSourceSpan(ctx, src.Name(), op, attribute.String("date", date))
	start := time.Now()

	batch, err := s.invoke(ctx, src, fn)
	dur := time.Since(start)
	if err != nil {
		batch = Batch{}
	}

	span.SetAttributes(
		attribute.Int("records", len(batch.Records)),
		attribute.Bool("truncated", batch.Truncated))
	tracing.End(span, err)
	metrics.RecordSourceCall(src.Name(), op, len(batch.Records), batch.Truncated, err, dur)

	return batch, SourceStatus{
		Source:    src.Name(),
		Date:      date,
		Count:     len(batch.Records),
		Err:       err,
		Truncated: batch.Truncated,
		Duration:  dur,
	}
}

// invoke turns an adapter panic into an ErrSourcePanic error.
func (s *Service) invoke(ctx context.Context, src Source, fn func(context.Context) (Batch, error)) (batch Batch, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("panic in source adapter",
				slog.String("source", src.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			batch, err = Batch{}, fmt.Errorf("%w: %v", ErrSourcePanic, r)
		}
	}()
	return fn(ctx)
}

// deduper keeps the first record per dedup key.
type deduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newDeduper() *deduper {
	return &deduper{seen: make(map[string]struct{})}
}

func (d *deduper) add(records []*entity.Vuln) (kept []*entity.Vuln, dropped int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, v := range records {
		key := v.DedupKey()
		if _, dup := d.seen[key]; dup {
			dropped++
			continue
		}
		d.seen[key] = struct{}{}
		kept = append(kept, v)
	}
	return kept, dropped
}
