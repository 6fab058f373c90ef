package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/usecase/collect"
)

// ChaitinEndpoint is the Rivers vulnerability list API.
const ChaitinEndpoint = "https://rivers.chaitin.cn/api/vuln/list"

var chaitinSeverity = entity.SeverityTable{
	"critical":  entity.LevelCritical,
	"high":      entity.LevelHigh,
	"urgent":    entity.LevelHigh,
	"important": entity.LevelMedium,
}

var chaitinFields = struct {
	name, cve, date, severity, tags, desc, ref Keys
}{
	name:     Keys{"title", "name"},
	cve:      Keys{"cve_id", "cve"},
	date:     Keys{"disclosure_date", "disclosureDate", "created_at"},
	severity: Keys{"severity", "level"},
	tags:     Keys{"weakness", "tags"},
	desc:     Keys{"summary", "description"},
	ref:      Keys{"references", "reference"},
}

// Chaitin adapts the Chaitin Rivers feed: GET with page/size/keyword and
// an explicit total_page count.
type Chaitin struct {
	req      *requester
	endpoint string
	size     int
	maxPages int
}

// NewChaitin creates the Chaitin Rivers adapter.
func NewChaitin(client Doer, opts Options) *Chaitin {
	return &Chaitin{
		req:      newRequester("长亭 Rivers", client, opts, 8*time.Second),
		endpoint: opts.endpoint(ChaitinEndpoint),
		size:     opts.pageSize(),
		maxPages: opts.maxPages(),
	}
}

// Name implements collect.Source.
func (c *Chaitin) Name() string { return c.req.source }

// FetchByDate implements collect.Source.
func (c *Chaitin) FetchByDate(ctx context.Context, date string) (collect.Batch, error) {
	var out []*entity.Vuln
	truncated, err := paginate(ctx, c.Name(), c.maxPages, c.pageFunc(""), func(rows []gjson.Result) bool {
		for _, row := range rows {
			if v, ok := c.toVuln(row); ok && v.Date() == date {
				out = append(out, v)
			}
		}
		return !earlierThan(chaitinFields.date.First(rows[len(rows)-1]), date)
	})
	return collect.Batch{Records: out, Truncated: truncated}, err
}

// Search implements collect.Source.
func (c *Chaitin) Search(ctx context.Context, keyword string) (collect.Batch, error) {
	m := newMatcher(keyword)
	var out []*entity.Vuln
	truncated, err := paginate(ctx, c.Name(), c.maxPages, c.pageFunc(strings.TrimSpace(keyword)), func(rows []gjson.Result) bool {
		for _, row := range rows {
			if v, ok := c.toVuln(row); ok && m.match(v) {
				out = append(out, v)
			}
		}
		return true
	})
	return collect.Batch{Records: out, Truncated: truncated}, err
}

func (c *Chaitin) pageFunc(keyword string) pageFunc {
	return func(ctx context.Context, n int) (page, error) {
		doc, err := c.req.fetchJSON(ctx, func(ctx context.Context) (*http.Request, error) {
			q := url.Values{}
			q.Set("page", strconv.Itoa(n))
			q.Set("size", strconv.Itoa(c.size))
			q.Set("keyword", keyword)
			return http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
		})
		if err != nil {
			return page{}, err
		}
		data := doc.Get("data")
		return page{
			rows:       rowsAt(data, "Data", "list", "data"),
			totalPages: intAt(data, "total_page", "totalPage"),
		}, nil
	}
}

// toVuln maps one row, rejecting severities outside the feed's filter.
func (c *Chaitin) toVuln(row gjson.Result) (*entity.Vuln, bool) {
	sev := chaitinFields.severity.First(row)
	if !chaitinSeverity.Allows(sev) {
		return nil, false
	}
	// disclosure_date looks like "2025-03-04 10:22:01"
	date, _, _ := strings.Cut(chaitinFields.date.First(row), " ")
	return newRecord(entity.VulnParams{
		Name:        chaitinFields.name.First(row),
		CVE:         chaitinFields.cve.First(row),
		Date:        date,
		Severity:    chaitinSeverity.Map(sev),
		Tags:        chaitinFields.tags.First(row),
		Source:      c.Name(),
		Description: chaitinFields.desc.First(row),
		Reference:   chaitinFields.ref.First(row),
	})
}
