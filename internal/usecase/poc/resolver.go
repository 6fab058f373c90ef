// Package poc finds public proof-of-concept repositories for a
// vulnerability record.
package poc

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"vuln-feed/internal/observability/logging"
	"vuln-feed/internal/observability/metrics"
)

// DefaultMaxHits is the number of URLs returned per record.
const DefaultMaxHits = 2

// Searcher runs one repository search and returns result URLs.
type Searcher interface {
	SearchRepos(ctx context.Context, query string, perPage int) ([]string, error)
}

// Cache stores resolved URL lists by key.
type Cache interface {
	Get(key string) ([]string, bool, error)
	Put(key string, urls []string) error
}

// Resolver maps a record to PoC repository URLs. Completed lookups are
// cached, including empty ones; a lookup with a failed search phase is not.
type Resolver struct {
	searcher Searcher
	cache    Cache
	maxHits  int
	group    singleflight.Group
}

// LookupTimeout bounds one shared lookup, which runs detached from the
// caller that started it.
const LookupTimeout = 60 * time.Second

// NewResolver creates a Resolver. maxHits <= 0 selects DefaultMaxHits.
func NewResolver(searcher Searcher, cache Cache, maxHits int) *Resolver {
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}
	return &Resolver{searcher: searcher, cache: cache, maxHits: maxHits}
}

// Resolve returns up to maxHits repository URLs for the record.
func (r *Resolver) Resolve(ctx context.Context, cve, name, otherID string) ([]string, error) {
	return r.ResolveKeywords(ctx, Keywords(cve, name, otherID))
}

// ResolveKeywords looks up kws, whose first element is the most specific.
//
// Upstream search errors count as zero hits and are not returned. The error
// result reports a cache failure or the caller's cancellation; on a cache
// failure the URLs found are returned alongside it.
func (r *Resolver) ResolveKeywords(ctx context.Context, kws []string) ([]string, error) {
	if len(kws) == 0 {
		return []string{}, nil
	}
	key := strings.Join(kws, "|") + "|" + strconv.Itoa(r.maxHits)

	type result struct {
		urls []string
		err  error
	}
	// Waiters share the flight, so one caller's cancellation must not end it.
	ch := r.group.DoChan(key, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LookupTimeout)
		defer cancel()
		urls, err := r.resolve(lctx, key, kws)
		return result{urls, err}, nil
	})

	select {
	case <-ctx.Done():
		return []string{}, ctx.Err()
	case v := <-ch:
		if err := ctx.Err(); err != nil {
			return []string{}, err
		}
		res := v.Val.(result)
		return append([]string{}, res.urls...), res.err
	}
}

func (r *Resolver) resolve(ctx context.Context, key string, kws []string) ([]string, error) {
	logger := logging.FromContext(ctx)

	cached, ok, err := r.cache.Get(key)
	if err != nil {
		logger.Warn("poc cache read failed", slog.Any("error", err))
	}
	if ok {
		metrics.RecordPoCLookup(true)
		return cached, nil
	}
	metrics.RecordPoCLookup(false)

	exact := fmt.Sprintf("%q in:name,description", kws[0])
	hits, complete := r.query(ctx, "exact", exact, r.maxHits)

	if len(hits) < r.maxHits && len(kws) > 1 {
		quoted := make([]string, len(kws))
		for i, kw := range kws {
			quoted[i] = strconv.Quote(kw)
		}
		more, ok := r.query(ctx, "fallback", strings.Join(quoted, " OR "), r.maxHits*2)
		complete = complete && ok
		for _, u := range more {
			if len(hits) >= r.maxHits {
				break
			}
			if !contains(hits, u) {
				hits = append(hits, u)
			}
		}
	}
	if len(hits) > r.maxHits {
		hits = hits[:r.maxHits]
	}
	if hits == nil {
		hits = []string{}
	}

	if !complete || ctx.Err() != nil {
		logger.Info("poc result not cached", slog.Int("hits", len(hits)))
		return hits, nil
	}
	if err := r.cache.Put(key, hits); err != nil {
		logger.Warn("poc cache write failed", slog.Any("error", err))
		return hits, fmt.Errorf("store poc result: %w", err)
	}
	return hits, nil
}

// query reports false when the search failed.
func (r *Resolver) query(ctx context.Context, phase, q string, perPage int) ([]string, bool) {
	urls, err := r.searcher.SearchRepos(ctx, q, perPage)
	metrics.RecordPoCQuery(phase, err)
	if err != nil {
		logging.FromContext(ctx).Warn("github search failed",
			slog.String("phase", phase),
			slog.String("query", q),
			slog.Any("error", err))
		return nil, false
	}
	return urls, true
}
