package source

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/usecase/collect"
)

// QianxinEndpoint is the Qianxin CERT one-day list, queried per date.
const QianxinEndpoint = "https://ti.qianxin.com/alpha-api/v2/vuln/one-day"

// defaultQianxinLookback is how many days before today Search scans.
const defaultQianxinLookback = 6

var qianxinSeverity = entity.SeverityTable{
	"极危": entity.LevelCritical,
	"严重": entity.LevelCritical,
	"高危": entity.LevelHigh,
}

// qianxinBuckets are the lists merged from one response.
var qianxinBuckets = []string{"vuln_add", "vuln_update", "key_vuln_add", "poc_exp_add", "patch_add"}

var qianxinFields = struct {
	name, cve, other, date, level, tags, desc Keys
}{
	name:  Keys{"vuln_name", "title"},
	cve:   Keys{"cve_code", "cve_id"},
	other: Keys{"qvd_code"},
	date:  Keys{"publish_time", "date"},
	level: Keys{"rating_level", "level", "risk_level", "rating_level_cn"},
	tags:  Keys{"vuln_type", "threat_category"},
	desc:  Keys{"description"},
}

// Qianxin adapts the Qianxin CERT one-day feed. It has no keyword
// endpoint, so Search scans the one-day lists of a recent window.
type Qianxin struct {
	req      *requester
	endpoint string
	lookback int
	now      func() time.Time
}

// NewQianxin creates the Qianxin adapter. lookbackDays <= 0 selects the
// default search window.
func NewQianxin(client Doer, opts Options, lookbackDays int) *Qianxin {
	if lookbackDays <= 0 {
		lookbackDays = defaultQianxinLookback
	}
	return &Qianxin{
		req:      newRequester("奇安信 CERT", client, opts, 8*time.Second),
		endpoint: opts.endpoint(QianxinEndpoint),
		lookback: lookbackDays,
		now:      opts.now,
	}
}

// Name implements collect.Source.
func (q *Qianxin) Name() string { return q.req.source }

// FetchByDate implements collect.Source.
func (q *Qianxin) FetchByDate(ctx context.Context, date string) (collect.Batch, error) {
	rows, err := q.day(ctx, date)
	if err != nil {
		return collect.Batch{}, err
	}
	var out []*entity.Vuln
	for _, row := range rows {
		if v, ok := q.toVuln(row); ok && v.Date() == date {
			out = append(out, v)
		}
	}
	return collect.Batch{Records: out}, nil
}

// Search implements collect.Source by scanning today and the previous
// lookback days. Rows repeated across days are reported once.
func (q *Qianxin) Search(ctx context.Context, keyword string) (collect.Batch, error) {
	m := newMatcher(keyword)
	today := q.now()
	seen := make(map[string]struct{})
	var out []*entity.Vuln

	for i := 0; i <= q.lookback; i++ {
		date := today.AddDate(0, 0, -i).Format(entity.DateLayout)
		rows, err := q.day(ctx, date)
		if err != nil {
			if i == 0 {
				return collect.Batch{}, err
			}
			return collect.Batch{Records: out, Truncated: true}, nil
		}
		for _, row := range rows {
			v, ok := q.toVuln(row)
			if !ok || !m.match(v) {
				continue
			}
			if _, dup := seen[v.DedupKey()]; dup {
				continue
			}
			seen[v.DedupKey()] = struct{}{}
			out = append(out, v)
		}
	}
	return collect.Batch{Records: out}, nil
}

// day fetches one date's lists. Newer responses group rows into buckets
// under data; older ones return data as a flat array.
func (q *Qianxin) day(ctx context.Context, date string) ([]gjson.Result, error) {
	doc, err := q.req.fetchJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, q.endpoint+"?"+url.Values{"date": {date}}.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}

	data := doc.Get("data")
	if data.IsArray() {
		return data.Array(), nil
	}
	var rows []gjson.Result
	for _, bucket := range qianxinBuckets {
		if v := data.Get(bucket); v.IsArray() {
			rows = append(rows, v.Array()...)
		}
	}
	return rows, nil
}

func (q *Qianxin) toVuln(row gjson.Result) (*entity.Vuln, bool) {
	level := qianxinFields.level.Or(row, "未知")
	if !qianxinSeverity.Allows(level) {
		return nil, false
	}
	return newRecord(entity.VulnParams{
		Name:        qianxinFields.name.Or(row, "未知漏洞"),
		CVE:         qianxinFields.cve.First(row),
		OtherID:     qianxinFields.other.First(row),
		Date:        qianxinFields.date.First(row),
		Severity:    qianxinSeverity.Map(level),
		Tags:        qianxinFields.tags.First(row),
		Source:      q.Name(),
		Description: qianxinFields.desc.First(row),
	})
}
