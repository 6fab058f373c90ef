// Package vuln serves the read-only vulnerability query API.
package vuln

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"vuln-feed/internal/common/pagination"
	"vuln-feed/internal/handler/http/respond"
	"vuln-feed/internal/observability/logging"
	"vuln-feed/internal/usecase/collect"
	"vuln-feed/internal/usecase/poc"
	"vuln-feed/internal/usecase/refresh"
)

const maxKeywordLength = 200

// Feed is the refresh service as seen by the handlers.
type Feed interface {
	Latest() (*refresh.Snapshot, error)
	Search(ctx context.Context, keyword string) (*collect.Report, error)
}

// Resolver finds PoC repositories for a keyword list.
type Resolver interface {
	ResolveKeywords(ctx context.Context, kws []string) ([]string, error)
}

// ListHandler serves GET /api/vulns[?source=&page=&limit=].
type ListHandler struct {
	Feed   Feed
	Paging pagination.Config
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.ParseQueryParams(r, h.Paging)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	snap, err := h.Feed.Latest()
	if errors.Is(err, refresh.ErrNoSnapshot) {
		respond.SafeError(w, http.StatusServiceUnavailable,
			respond.NewAppError(http.StatusServiceUnavailable, "no snapshot yet, retry after the first refresh", nil))
		return
	}
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	records, meta := pagination.Slice(snap.BySource(strings.TrimSpace(r.URL.Query().Get("source"))), params)
	statuses, partial := statusDTOs(snap.Statuses)
	refreshedAt := snap.RefreshedAt
	respond.JSON(w, http.StatusOK, ListDTO{
		Records:     records,
		Count:       len(records),
		Pagination:  meta,
		Partial:     partial,
		Statuses:    statuses,
		Start:       snap.Start,
		End:         snap.End,
		RefreshedAt: &refreshedAt,
	})
}

// SearchHandler serves GET /api/vulns/search?q=[&page=&limit=].
type SearchHandler struct {
	Feed   Feed
	Paging pagination.Config
}

func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.ParseQueryParams(r, h.Paging)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("q query param required"))
		return
	}
	if utf8.RuneCountInString(q) > maxKeywordLength {
		respond.SafeError(w, http.StatusBadRequest,
			fmt.Errorf("q must be at most %d characters", maxKeywordLength))
		return
	}

	report, err := h.Feed.Search(r.Context(), q)
	switch {
	case errors.Is(err, collect.ErrEmptyKeyword):
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, context.DeadlineExceeded):
		respond.SafeError(w, http.StatusGatewayTimeout,
			respond.NewAppError(http.StatusGatewayTimeout, "search timed out", err))
		return
	case err != nil:
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	records, meta := pagination.Slice(report.Records, params)
	statuses, partial := statusDTOs(report.Statuses)
	respond.JSON(w, http.StatusOK, ListDTO{
		Records:    records,
		Count:      len(records),
		Pagination: meta,
		Partial:    partial,
		Statuses:   statuses,
	})
}

// PoCHandler serves GET /api/poc?cve=&name=&id=.
type PoCHandler struct{ Resolver Resolver }

func (h PoCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kws := poc.Keywords(query.Get("cve"), query.Get("name"), query.Get("id"))
	if len(kws) == 0 {
		respond.SafeError(w, http.StatusBadRequest, errors.New("one of cve, name or id is required"))
		return
	}

	// A cache write failure still yields the URLs found.
	urls, err := h.Resolver.ResolveKeywords(r.Context(), kws)
	if err != nil {
		logging.FromContext(r.Context()).Warn("poc resolve degraded",
			slog.String("error", respond.SanitizeError(err)))
	}
	if urls == nil {
		urls = []string{}
	}
	respond.JSON(w, http.StatusOK, PoCDTO{Keywords: kws, URLs: urls})
}
