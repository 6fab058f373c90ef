package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vuln-feed/internal/domain/entity"
)

func nvdEntry(id, severity, desc string) string {
	return fmt.Sprintf(`{"cve": {
		"id": %q,
		"published": "2025-03-04T15:15:10.123",
		"descriptions": [{"lang": "es", "value": "otro"}, {"lang": "en", "value": %q}],
		"metrics": {"cvssMetricV31": [{"cvssData": {"baseSeverity": %q}}]},
		"weaknesses": [{"description": [{"lang": "en", "value": "CWE-78"}]}],
		"references": [{"url": "https://nvd/%s"}]
	}}`, id, desc, severity, id)
}

func TestNVD_FetchByDate_Paginates(t *testing.T) {
	var mu sync.Mutex
	var starts []string
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request) string {
		q := r.URL.Query()
		assert.Equal(t, "2025-03-04T00:00:00.000", q.Get("pubStartDate"))
		assert.Equal(t, "2025-03-04T23:59:59.999", q.Get("pubEndDate"))
		assert.Equal(t, "secret", r.Header.Get("apiKey"))

		mu.Lock()
		starts = append(starts, q.Get("startIndex"))
		mu.Unlock()

		if q.Get("startIndex") == "0" {
			return `{"resultsPerPage": 2, "totalResults": 3, "vulnerabilities": [` +
				nvdEntry("CVE-2025-0001", "CRITICAL", "OS command injection in the admin panel. Attackers may run code.") + `,` +
				nvdEntry("CVE-2025-0002", "MEDIUM", "Medium issue.") + `]}`
		}
		return `{"resultsPerPage": 2, "totalResults": 3, "vulnerabilities": [` +
			nvdEntry("CVE-2025-0003", "HIGH", "") + `]}`
	}))
	defer srv.Close()

	opts := testOptions(srv)
	opts.PageSize = 2
	n := NewNVD(srv.Client(), opts, "secret")

	got, err := n.FetchByDate(context.Background(), "2025-03-04")
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "2"}, starts)
	require.Len(t, got.Records, 2)

	first := got.Records[0]
	assert.Equal(t, "OS command injection in the admin panel", first.Name())
	assert.Equal(t, entity.LevelCritical, first.Severity().Level)
	assert.Equal(t, "CWE-78", first.Tags())
	assert.Equal(t, "https://nvd/CVE-2025-0001", first.Reference())
	assert.Equal(t, "2025-03-04", first.Date())

	// no description: the id doubles as the name
	assert.Equal(t, "CVE-2025-0003", got.Records[1].Name())
}

func TestNVD_Search(t *testing.T) {
	t.Run("TC-1: CVE keyword uses cveId", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(t, func(r *http.Request) string {
			assert.Equal(t, "CVE-2025-0001", r.URL.Query().Get("cveId"))
			assert.Empty(t, r.URL.Query().Get("keywordSearch"))
			assert.Empty(t, r.Header.Get("apiKey"))
			return `{"resultsPerPage": 1, "totalResults": 1, "vulnerabilities": [` +
				nvdEntry("CVE-2025-0001", "HIGH", "Injection.") + `]}`
		}))
		defer srv.Close()

		got, err := NewNVD(srv.Client(), testOptions(srv), "").Search(context.Background(), "cve-2025-0001")
		require.NoError(t, err)
		assert.Len(t, got.Records, 1)
	})

	t.Run("TC-2: other keywords use keywordSearch", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(t, func(r *http.Request) string {
			assert.Equal(t, "admin panel", r.URL.Query().Get("keywordSearch"))
			return `{"resultsPerPage": 0, "totalResults": 0, "vulnerabilities": []}`
		}))
		defer srv.Close()

		got, err := NewNVD(srv.Client(), testOptions(srv), "").Search(context.Background(), "admin panel")
		require.NoError(t, err)
		assert.Empty(t, got.Records)
	})
}

func TestNVDName(t *testing.T) {
	assert.Equal(t, "CVE-1", nvdName("CVE-1", ""))
	assert.Equal(t, "Short one", nvdName("CVE-1", "Short one."))

	long := strings.Repeat("a", 120)
	got := nvdName("CVE-1", long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, nvdNameRunes+3, len([]rune(got)))
}
