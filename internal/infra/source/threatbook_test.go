package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vuln-feed/internal/domain/entity"
)

const threatBookHome = `{"data": {
	"premium": [
		{"vuln_name_zh": "Fortinet 认证绕过", "id": "CVE-2025-2222", "vuln_update_time": "2025-03-04 10:00:00", "riskLevel": "严重"},
		{"vuln_name_zh": "XVE 条目", "id": "XVE-2025-9", "vuln_update_time": "2025-03-04"}
	],
	"highRisk": [
		{"vuln_name_zh": "无时间", "id": "CVE-2025-3333", "riskLevel": "高风险"},
		{"vuln_name_zh": "低风险", "id": "CVE-2025-4444", "vulnPublishTime": "2025-03-04", "riskLevel": "低风险"},
		{"vuln_name_zh": "前一天", "id": "CVE-2025-5555", "vuln_publish_time": "2025-03-03", "riskLevel": "高危"}
	]
}}`

func TestThreatBook_FetchByDate(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request) string {
		assert.Equal(t, "https://x.threatbook.com/", r.Header.Get("Referer"))
		return threatBookHome
	}))
	defer srv.Close()

	tb := NewThreatBook(srv.Client(), testOptions(srv), "")
	got, err := tb.FetchByDate(context.Background(), "2025-03-04")
	require.NoError(t, err)

	assert.Equal(t, []string{"Fortinet 认证绕过", "XVE 条目"}, names(got.Records))
	assert.Equal(t, entity.LevelCritical, got.Records[0].Severity().Level)
	assert.NotContains(t, names(got.Records), "低风险", "rows outside the severity table are dropped")

	// 缺省 riskLevel は 高风险 として扱う
	xve := got.Records[1]
	assert.Equal(t, "", xve.CVE())
	assert.Equal(t, "XVE-2025-9", xve.OtherID())
	assert.Equal(t, entity.LevelHigh, xve.Severity().Level)
}

func TestThreatBook_SetCookie(t *testing.T) {
	var mu sync.Mutex
	var cookies []string
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request) string {
		mu.Lock()
		cookies = append(cookies, r.Header.Get("Cookie"))
		mu.Unlock()
		return `{"data": {}}`
	}))
	defer srv.Close()

	tb := NewThreatBook(srv.Client(), testOptions(srv), "sid=first")
	ctx := context.Background()

	_, err := tb.Search(ctx, "x")
	require.NoError(t, err)
	tb.SetCookie("sid=second")
	_, err = tb.Search(ctx, "x")
	require.NoError(t, err)
	tb.SetCookie("")
	_, err = tb.Search(ctx, "x")
	require.NoError(t, err)

	assert.Equal(t, []string{"sid=first", "sid=second", ""}, cookies)
}

func TestThreatBook_Search(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request) string { return threatBookHome }))
	defer srv.Close()

	tb := NewThreatBook(srv.Client(), testOptions(srv), "")

	got, err := tb.Search(context.Background(), "CVE-2025-5555")
	require.NoError(t, err)
	assert.Equal(t, []string{"前一天"}, names(got.Records))

	got, err = tb.Search(context.Background(), "fortinet")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fortinet 认证绕过"}, names(got.Records))
}
