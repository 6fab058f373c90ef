package collect

import (
	"context"

	"vuln-feed/internal/domain/entity"
)

// Batch is what one adapter call produced.
type Batch struct {
	Records []*entity.Vuln

	// Truncated is set when pagination stopped early because a page failed
	// after every retry. Records then holds what earlier pages returned.
	Truncated bool
}

// Source is implemented by every feed adapter.
//
// An adapter returns an error only when the feed could not be reached at
// all; later page failures end pagination and set Batch.Truncated. An
// adapter that cannot serve an operation returns an empty Batch.
type Source interface {
	// Name is the provenance tag stamped on every record the adapter builds.
	Name() string

	// FetchByDate returns records disclosed on date (YYYY-MM-DD) that pass
	// the adapter's severity filter.
	FetchByDate(ctx context.Context, date string) (Batch, error)

	// Search returns records matching keyword: exact CVE match when the
	// keyword starts with "CVE-", else a case-insensitive name substring.
	Search(ctx context.Context, keyword string) (Batch, error)
}
