package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"

	"vuln-feed/internal/observability/metrics"
)

// page is one decoded upstream page.
type page struct {
	rows []gjson.Result

	// totalPages is the upstream page count, 0 when the feed does not
	// report one and signals the end with an empty page instead.
	totalPages int
}

type pageFunc func(ctx context.Context, n int) (page, error)

// visitFunc consumes a page's rows and reports whether to keep paging.
// Date fetches return false once the last row predates the target,
// since every feed lists newest first.
type visitFunc func(rows []gjson.Result) bool

// paginate fetches pages 1..n strictly in sequence. It stops when the
// reported page count is reached, on an empty page, when visit says so,
// or at maxPages.
//
// A failure on the first page is returned as an error. A failure on a
// later page ends pagination quietly with truncated set, so the caller
// keeps what earlier pages produced.
func paginate(ctx context.Context, source string, maxPages int, fetch pageFunc, visit visitFunc) (truncated bool, err error) {
	for n := 1; n <= maxPages; n++ {
		p, err := fetch(ctx, n)
		if err != nil {
			metrics.RecordPageFailure(source)
			if n == 1 {
				return false, fmt.Errorf("%s page 1: %w", source, err)
			}
			slog.Warn("page fetch failed, keeping partial results",
				slog.String("source", source),
				slog.Int("page", n),
				slog.Any("error", err))
			return true, nil
		}

		if len(p.rows) == 0 {
			return false, nil
		}
		if !visit(p.rows) {
			return false, nil
		}
		if p.totalPages > 0 && n >= p.totalPages {
			return false, nil
		}
	}

	slog.Debug("page limit reached",
		slog.String("source", source),
		slog.Int("max_pages", maxPages))
	return false, nil
}
