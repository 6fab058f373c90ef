package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/infra/transport"
	"vuln-feed/internal/usecase/collect"
)

// NVDEndpoint is the NVD CVE API 2.0.
const NVDEndpoint = "https://services.nvd.nist.gov/rest/json/cves/2.0"

const nvdNameRunes = 80

var nvdSeverity = entity.SeverityTable{
	"critical": entity.LevelCritical,
	"high":     entity.LevelHigh,
}

var nvdFields = struct {
	id, published, severity, cwe, ref Keys
}{
	id:        Keys{"id", "CVE_data_meta.ID"},
	published: Keys{"published", "publishedDate"},
	severity: Keys{
		"metrics.cvssMetricV40.0.cvssData.baseSeverity",
		"metrics.cvssMetricV31.0.cvssData.baseSeverity",
		"metrics.cvssMetricV30.0.cvssData.baseSeverity",
		"metrics.cvssMetricV2.0.baseSeverity",
	},
	cwe: Keys{"weaknesses.0.description.0.value"},
	ref: Keys{"references.0.url"},
}

// NVD adapts the NIST NVD CVE API: offset pagination via startIndex and
// totalResults. An API key raises the upstream rate limit.
type NVD struct {
	req      *requester
	endpoint string
	size     int
	maxPages int
}

// NewNVD creates the NVD adapter.
func NewNVD(client Doer, opts Options, apiKey string) *NVD {
	req := newRequester("NVD", client, opts, 12*time.Second)
	req.headers = transport.NewHeaders(nil)
	size := opts.pageSize()
	if size > 2000 {
		size = 2000
	}
	n := &NVD{req: req, endpoint: opts.endpoint(NVDEndpoint), size: size, maxPages: opts.maxPages()}
	n.SetAPIKey(apiKey)
	return n
}

// SetAPIKey replaces the API key used by later requests; empty clears it.
func (n *NVD) SetAPIKey(raw string) {
	n.req.headers.Set("apiKey", raw)
}

// Name implements collect.Source.
func (n *NVD) Name() string { return n.req.source }

// FetchByDate implements collect.Source. The query window is the whole
// UTC day, so every page is walked.
func (n *NVD) FetchByDate(ctx context.Context, date string) (collect.Batch, error) {
	q := url.Values{}
	q.Set("pubStartDate", date+"T00:00:00.000")
	q.Set("pubEndDate", date+"T23:59:59.999")
	return n.run(ctx, q, func(v *entity.Vuln) bool { return v.Date() == date })
}

// Search implements collect.Source. CVE keywords use the cveId filter,
// anything else the upstream keyword search.
func (n *NVD) Search(ctx context.Context, keyword string) (collect.Batch, error) {
	keyword = strings.TrimSpace(keyword)
	q := url.Values{}
	if entity.IsCVEKeyword(keyword) {
		q.Set("cveId", strings.ToUpper(keyword))
	} else {
		q.Set("keywordSearch", keyword)
	}
	return n.run(ctx, q, newMatcher(keyword).match)
}

func (n *NVD) run(ctx context.Context, q url.Values, keep func(*entity.Vuln) bool) (collect.Batch, error) {
	var out []*entity.Vuln
	truncated, err := paginate(ctx, n.Name(), n.maxPages, n.pageFunc(q), func(rows []gjson.Result) bool {
		for _, row := range rows {
			if v, ok := n.toVuln(row); ok && keep(v) {
				out = append(out, v)
			}
		}
		return true
	})
	return collect.Batch{Records: out, Truncated: truncated}, err
}

func (n *NVD) pageFunc(base url.Values) pageFunc {
	return func(ctx context.Context, p int) (page, error) {
		q := url.Values{}
		for k, v := range base {
			q[k] = v
		}
		q.Set("resultsPerPage", strconv.Itoa(n.size))
		q.Set("startIndex", strconv.Itoa((p-1)*n.size))

		doc, err := n.req.fetchJSON(ctx, func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+q.Encode(), nil)
		})
		if err != nil {
			return page{}, err
		}

		total := intAt(doc, "totalResults", "total_results")
		perPage := intAt(doc, "resultsPerPage")
		if perPage == 0 {
			perPage = n.size
		}
		return page{
			rows:       rowsAt(doc, "vulnerabilities", "result.CVE_Items"),
			totalPages: (total + perPage - 1) / perPage,
		}, nil
	}
}

func (n *NVD) toVuln(row gjson.Result) (*entity.Vuln, bool) {
	// API 2.0 wraps each entry in {"cve": {...}}.
	if c := row.Get("cve"); c.IsObject() {
		row = c
	}
	sev := nvdFields.severity.First(row)
	if !nvdSeverity.Allows(sev) {
		return nil, false
	}

	id := nvdFields.id.First(row)
	desc := englishDescription(row)
	return newRecord(entity.VulnParams{
		Name:        nvdName(id, desc),
		CVE:         id,
		Date:        nvdFields.published.First(row),
		Severity:    nvdSeverity.Map(sev),
		Tags:        nvdFields.cwe.First(row),
		Source:      n.Name(),
		Description: desc,
		Reference:   nvdFields.ref.First(row),
	})
}

func englishDescription(row gjson.Result) string {
	for _, path := range []string{"descriptions", "description.description_data"} {
		for _, d := range row.Get(path).Array() {
			if d.Get("lang").String() == "en" {
				return strings.TrimSpace(d.Get("value").String())
			}
		}
	}
	return ""
}

// nvdName derives a title from the first sentence of the description,
// since NVD entries have none. It falls back to the CVE id.
func nvdName(id, desc string) string {
	sentence, _, _ := strings.Cut(desc, ". ")
	sentence = strings.TrimSuffix(strings.TrimSpace(sentence), ".")
	if sentence == "" {
		return id
	}
	if utf8.RuneCountInString(sentence) > nvdNameRunes {
		r := []rune(sentence)
		sentence = strings.TrimSpace(string(r[:nvdNameRunes])) + "..."
	}
	return sentence
}
