package source

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/usecase/collect"
)

// KEVEndpoint is the CISA Known Exploited Vulnerabilities catalog.
const KEVEndpoint = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"

// defaultCatalogTTL bounds how long one catalog download serves repeated
// calls, e.g. one per day of an aggregated range.
const defaultCatalogTTL = 15 * time.Minute

var kevFields = struct {
	name, cve, date, vendor, desc, notes Keys
}{
	name:   Keys{"vulnerabilityName", "vulnerability_name"},
	cve:    Keys{"cveID", "cve_id"},
	date:   Keys{"dateAdded", "date_added"},
	vendor: Keys{"vendorProject", "vendor_project"},
	desc:   Keys{"shortDescription", "short_description"},
	notes:  Keys{"notes"},
}

// KEV adapts the CISA KEV catalog. The catalog carries no severity, so
// every entry passes and records have no severity.
type KEV struct {
	req      *requester
	endpoint string
	ttl      time.Duration
	now      func() time.Time

	mu        sync.Mutex
	rows      []gjson.Result
	fetchedAt time.Time
}

// NewKEV creates the KEV adapter. ttl <= 0 selects the default memo TTL.
func NewKEV(client Doer, opts Options, ttl time.Duration) *KEV {
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	return &KEV{
		req:      newRequester("CISA KEV", client, opts, 12*time.Second),
		endpoint: opts.endpoint(KEVEndpoint),
		ttl:      ttl,
		now:      opts.now,
	}
}

// Name implements collect.Source.
func (k *KEV) Name() string { return k.req.source }

// FetchByDate implements collect.Source.
func (k *KEV) FetchByDate(ctx context.Context, date string) (collect.Batch, error) {
	return k.filter(ctx, func(v *entity.Vuln) bool { return v.Date() == date })
}

// Search implements collect.Source. No severity filter applies.
func (k *KEV) Search(ctx context.Context, keyword string) (collect.Batch, error) {
	return k.filter(ctx, newMatcher(keyword).match)
}

func (k *KEV) filter(ctx context.Context, keep func(*entity.Vuln) bool) (collect.Batch, error) {
	rows, err := k.catalog(ctx)
	if err != nil {
		return collect.Batch{}, err
	}
	var out []*entity.Vuln
	for _, row := range rows {
		v, ok := newRecord(entity.VulnParams{
			Name:        kevFields.name.First(row),
			CVE:         kevFields.cve.First(row),
			Date:        kevFields.date.First(row),
			Severity:    entity.NoSeverity,
			Tags:        kevFields.vendor.First(row),
			Source:      k.Name(),
			Description: kevFields.desc.First(row),
			Reference:   kevFields.notes.First(row),
		})
		if ok && keep(v) {
			out = append(out, v)
		}
	}
	return collect.Batch{Records: out}, nil
}

// catalog returns the memoized catalog rows, downloading them when the
// memo is empty or older than the TTL. Concurrent callers wait for one
// download.
func (k *KEV) catalog(ctx context.Context) ([]gjson.Result, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.rows != nil && k.now().Sub(k.fetchedAt) < k.ttl {
		return k.rows, nil
	}

	doc, err := k.req.fetchJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, k.endpoint, nil)
	})
	if err != nil {
		return nil, err
	}
	rows := rowsAt(doc, "vulnerabilities", "data")
	if rows == nil {
		rows = []gjson.Result{}
	}
	k.rows, k.fetchedAt = rows, k.now()
	return rows, nil
}
