package source

import (
	"context"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/infra/transport"
	"vuln-feed/internal/usecase/collect"
)

// ThreatBookEndpoint is the ThreatBook vulnerability homepage API.
const ThreatBookEndpoint = "https://x.threatbook.com/v5/node/vul_module/homePage"

// Rows whose riskLevel is not in this table are dropped.
var threatBookSeverity = entity.SeverityTable{
	"严重":   entity.LevelCritical,
	"高风险":  entity.LevelHigh,
	"高危":   entity.LevelHigh,
	"high": entity.LevelHigh,
}

var threatBookFields = struct {
	name, id, stamp, risk Keys
}{
	name:  Keys{"vuln_name_zh", "vulnNameZh", "title"},
	id:    Keys{"id", "vulnId"},
	stamp: Keys{"vuln_update_time", "vulnPublishTime", "vuln_publish_time"},
	risk:  Keys{"riskLevel", "risk_level"},
}

// ThreatBook adapts the ThreatBook homepage lists (premium and high risk).
// The feed has a single page; logged-in entries need a session cookie.
type ThreatBook struct {
	req      *requester
	endpoint string
}

// NewThreatBook creates the ThreatBook adapter with its own header set.
func NewThreatBook(client Doer, opts Options, cookie string) *ThreatBook {
	req := newRequester("ThreatBook", client, opts, 8*time.Second)
	req.headers = transport.NewHeaders(map[string]string{
		"Referer":         "https://x.threatbook.com/",
		"Accept-Language": "zh-CN,zh;q=0.9",
	})
	t := &ThreatBook{req: req, endpoint: opts.endpoint(ThreatBookEndpoint)}
	t.SetCookie(cookie)
	return t
}

// SetCookie replaces the session cookie for every later request; an empty
// value clears it. Other adapters are unaffected.
func (t *ThreatBook) SetCookie(raw string) {
	t.req.headers.Set("Cookie", raw)
}

// Name implements collect.Source.
func (t *ThreatBook) Name() string { return t.req.source }

// FetchByDate implements collect.Source.
func (t *ThreatBook) FetchByDate(ctx context.Context, date string) (collect.Batch, error) {
	return t.collect(ctx, func(v *entity.Vuln) bool { return v.Date() == date })
}

// Search implements collect.Source. Only the homepage lists are searched.
func (t *ThreatBook) Search(ctx context.Context, keyword string) (collect.Batch, error) {
	return t.collect(ctx, newMatcher(keyword).match)
}

func (t *ThreatBook) collect(ctx context.Context, keep func(*entity.Vuln) bool) (collect.Batch, error) {
	doc, err := t.req.fetchJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint, nil)
	})
	if err != nil {
		return collect.Batch{}, err
	}

	data := doc.Get("data")
	rows := append(rowsAt(data, "premium"), rowsAt(data, "highRisk", "high_risk")...)

	var out []*entity.Vuln
	for _, row := range rows {
		if v, ok := t.toVuln(row); ok && keep(v) {
			out = append(out, v)
		}
	}
	return collect.Batch{Records: out}, nil
}

func (t *ThreatBook) toVuln(row gjson.Result) (*entity.Vuln, bool) {
	stamp := threatBookFields.stamp.First(row)
	if stamp == "" {
		return nil, false
	}
	risk := threatBookFields.risk.Or(row, "高风险")
	if !threatBookSeverity.Allows(risk) {
		return nil, false
	}
	// id is a CVE for most rows and an XVE identifier otherwise; NewVuln
	// keeps the latter as OtherID.
	return newRecord(entity.VulnParams{
		Name:     threatBookFields.name.Or(row, "未知漏洞"),
		CVE:      threatBookFields.id.First(row),
		Date:     stamp,
		Severity: threatBookSeverity.Map(risk),
		Source:   t.Name(),
	})
}
