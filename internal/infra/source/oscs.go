package source

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/usecase/collect"
)

// OSCSEndpoint is the OSCS intelligence list API.
const OSCSEndpoint = "https://www.oscs1024.com/oscs/v1/intelligence/list"

var oscsSeverity = entity.SeverityTable{
	"严重": entity.LevelCritical,
	"高危": entity.LevelHigh,
}

var oscsFields = struct {
	name, cve, date, level, desc, ref Keys
}{
	name:  Keys{"title", "name"},
	cve:   Keys{"cve_id", "cveId"},
	date:  Keys{"public_time", "publicTime", "created_at"},
	level: Keys{"level", "risk_level"},
	desc:  Keys{"desc", "description"},
	ref:   Keys{"url", "link"},
}

// OSCS adapts the OSCS feed: JSON POST with page/per_page/keyword; an
// empty page marks the end.
type OSCS struct {
	req      *requester
	endpoint string
	size     int
	maxPages int
}

// NewOSCS creates the OSCS adapter.
func NewOSCS(client Doer, opts Options) *OSCS {
	return &OSCS{
		req:      newRequester("OSCS", client, opts, 8*time.Second),
		endpoint: opts.endpoint(OSCSEndpoint),
		size:     opts.pageSize(),
		maxPages: opts.maxPages(),
	}
}

// Name implements collect.Source.
func (o *OSCS) Name() string { return o.req.source }

// FetchByDate implements collect.Source.
func (o *OSCS) FetchByDate(ctx context.Context, date string) (collect.Batch, error) {
	var out []*entity.Vuln
	truncated, err := paginate(ctx, o.Name(), o.maxPages, o.pageFunc(""), func(rows []gjson.Result) bool {
		for _, row := range rows {
			if v, ok := o.toVuln(row); ok && v.Date() == date {
				out = append(out, v)
			}
		}
		return !earlierThan(oscsFields.date.First(rows[len(rows)-1]), date)
	})
	return collect.Batch{Records: out, Truncated: truncated}, err
}

// Search implements collect.Source.
func (o *OSCS) Search(ctx context.Context, keyword string) (collect.Batch, error) {
	m := newMatcher(keyword)
	var out []*entity.Vuln
	truncated, err := paginate(ctx, o.Name(), o.maxPages, o.pageFunc(strings.TrimSpace(keyword)), func(rows []gjson.Result) bool {
		for _, row := range rows {
			if v, ok := o.toVuln(row); ok && m.match(v) {
				out = append(out, v)
			}
		}
		return true
	})
	return collect.Batch{Records: out, Truncated: truncated}, err
}

type oscsQuery struct {
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Keyword string `json:"keyword,omitempty"`
}

func (o *OSCS) pageFunc(keyword string) pageFunc {
	return func(ctx context.Context, n int) (page, error) {
		payload, err := json.Marshal(oscsQuery{Page: n, PerPage: o.size, Keyword: keyword})
		if err != nil {
			return page{}, err
		}
		doc, err := o.req.fetchJSON(ctx, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			return req, nil
		})
		if err != nil {
			return page{}, err
		}
		return page{rows: rowsAt(doc, "data.data", "data.list", "data")}, nil
	}
}

func (o *OSCS) toVuln(row gjson.Result) (*entity.Vuln, bool) {
	level := oscsFields.level.First(row)
	if !oscsSeverity.Allows(level) {
		return nil, false
	}
	// public_time is ISO 8601: "2025-03-04T08:00:00+08:00"
	date, _, _ := strings.Cut(oscsFields.date.First(row), "T")
	return newRecord(entity.VulnParams{
		Name:        oscsFields.name.First(row),
		CVE:         oscsFields.cve.First(row),
		Date:        date,
		Severity:    oscsSeverity.Map(level),
		Source:      o.Name(),
		Description: oscsFields.desc.First(row),
		Reference:   oscsFields.ref.First(row),
	})
}
