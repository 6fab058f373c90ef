package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/usecase/collect"
)

func record(t *testing.T, p entity.VulnParams) *entity.Vuln {
	t.Helper()
	v, err := entity.NewVuln(p)
	require.NoError(t, err)
	return v
}

func sampleRecords(t *testing.T) []*entity.Vuln {
	return []*entity.Vuln{
		record(t, entity.VulnParams{
			Name: "Struts RCE", CVE: "CVE-2023-50164", Date: "2023-12-07",
			Severity: entity.Severity{Level: entity.LevelCritical, Raw: "严重"}, Source: "Chaitin",
		}),
		record(t, entity.VulnParams{
			Name: "Some product XSS", OtherID: "XVE-2024-1", Date: "2024-01-02",
			Severity: entity.Severity{Level: entity.LevelMedium, Raw: "中危"}, Source: "ThreatBook",
		}),
		record(t, entity.VulnParams{Name: "KEV entry", CVE: "CVE-2024-0001", Source: "CISA KEV"}),
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, sampleRecords(t), TableConfig{Title: "2024-01-02"})
	out := buf.String()

	assert.Contains(t, out, "2024-01-02\n==========")
	assert.Contains(t, out, "Total: 3 (CRITICAL: 1, HIGH: 0, MEDIUM: 1, LOW: 0, OTHER: 1)")
	assert.Contains(t, out, "CVE-2023-50164")
	assert.Contains(t, out, "XVE-2024-1")
	assert.Contains(t, out, "critical")
	// 非端末出力では ANSI エスケープを含まない
	assert.NotContains(t, out, "\x1b[")
}

func TestSortForDisplay(t *testing.T) {
	high := entity.Severity{Level: entity.LevelHigh, Raw: "high"}
	crit := entity.Severity{Level: entity.LevelCritical, Raw: "critical"}
	recs := []*entity.Vuln{
		record(t, entity.VulnParams{Name: "b old", Date: "2025-03-03", Severity: crit, Source: "OSCS"}),
		record(t, entity.VulnParams{Name: "z high", Date: "2025-03-04", Severity: high, Source: "OSCS"}),
		record(t, entity.VulnParams{Name: "y crit", Date: "2025-03-04", Severity: crit, Source: "OSCS"}),
		record(t, entity.VulnParams{Name: "a high", Date: "2025-03-04", Severity: high, Source: "OSCS"}),
		record(t, entity.VulnParams{Name: "unmapped", Date: "2025-03-04", Severity: entity.Unmapped("中危"), Source: "OSCS"}),
	}

	var got []string
	for _, v := range SortForDisplay(recs) {
		got = append(got, v.Name())
	}
	assert.Equal(t, []string{"y crit", "a high", "z high", "unmapped", "b old"}, got)
	// 入力スライスは並べ替えない
	assert.Equal(t, "b old", recs[0].Name())
}

func TestWriteTable_RowOrder(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, sampleRecords(t), TableConfig{})
	out := buf.String()

	xss := strings.Index(out, "Some product XSS")
	struts := strings.Index(out, "Struts RCE")
	kev := strings.Index(out, "KEV entry")
	require.True(t, xss >= 0 && struts >= 0 && kev >= 0)
	assert.Less(t, xss, struts)
	assert.Less(t, struts, kev)
}

func TestWriteTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, nil, TableConfig{})
	assert.Equal(t, "Total: 0 (CRITICAL: 0, HIGH: 0, MEDIUM: 0, LOW: 0, OTHER: 0)\n", buf.String())
}

func TestWriteTable_TruncatesNames(t *testing.T) {
	long := strings.Repeat("x", 80)
	recs := []*entity.Vuln{record(t, entity.VulnParams{Name: long, Source: "OSCS"})}

	var buf bytes.Buffer
	WriteTable(&buf, recs, TableConfig{Width: 100})
	assert.NotContains(t, buf.String(), long)
	assert.Contains(t, buf.String(), strings.Repeat("x", 29)+"…")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "远程代…", truncate("远程代码执行", 4))
}

func TestWriteJSON(t *testing.T) {
	report := &collect.Report{
		Records: sampleRecords(t)[:1],
		Statuses: []collect.SourceStatus{
			{Source: "Chaitin", Count: 1},
			{Source: "OSCS", Date: "2024-01-02", Err: errors.New("status 502")},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, report))

	var doc struct {
		Records  []map[string]any `json:"records"`
		Count    int              `json:"count"`
		Failures []struct {
			Source string `json:"source"`
			Error  string `json:"error"`
		} `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 1, doc.Count)
	assert.Equal(t, "CVE-2023-50164", doc.Records[0]["cve"])
	assert.Equal(t, "critical", doc.Records[0]["severity"])
	require.Len(t, doc.Failures, 1)
	assert.Equal(t, "OSCS", doc.Failures[0].Source)
	assert.Equal(t, "status 502", doc.Failures[0].Error)
}

func TestWriteWarnings(t *testing.T) {
	report := &collect.Report{Statuses: []collect.SourceStatus{
		{Source: "Qianxin", Date: "2024-01-02", Err: errors.New("timeout")},
		{Source: "OSCS", Truncated: true},
		{Source: "Chaitin"},
	}}
	var buf bytes.Buffer
	WriteWarnings(&buf, report, false)
	assert.Equal(t,
		"warning: Qianxin (2024-01-02) failed: timeout\nwarning: OSCS returned partial results\n",
		buf.String())
}

func TestWriteURLs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteURLs(&buf, nil, FormatTable))
	assert.Equal(t, "no PoC found\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteURLs(&buf, []string{"https://a", "https://b"}, FormatTable))
	assert.Equal(t, "https://a\nhttps://b\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteURLs(&buf, nil, FormatJSON))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestValidFormat(t *testing.T) {
	assert.True(t, ValidFormat("table"))
	assert.True(t, ValidFormat("json"))
	assert.False(t, ValidFormat("yaml"))
}
