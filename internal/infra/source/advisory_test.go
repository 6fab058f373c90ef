package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const advisoryRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Vendor advisories</title>
  <item>
    <title>CVE-2025-7777: Gateway path traversal</title>
    <link>https://vendor/adv/1</link>
    <category>gateway</category>
    <pubDate>Tue, 04 Mar 2025 09:00:00 GMT</pubDate>
    <description><![CDATA[<p>A <b>path traversal</b> issue.</p>]]></description>
  </item>
  <item>
    <title>Router firmware update</title>
    <link>https://vendor/adv/2</link>
    <pubDate>Tue, 04 Mar 2025 07:00:00 GMT</pubDate>
    <description>Fixes cve-2025-8888 in the web UI.</description>
  </item>
  <item>
    <title>Older note</title>
    <pubDate>Mon, 03 Mar 2025 07:00:00 GMT</pubDate>
    <description>old</description>
  </item>
</channel>
</rss>`

func TestAdvisory_FetchByDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(advisoryRSS))
	}))
	defer srv.Close()

	a := NewAdvisory(srv.Client(), Options{Retry: testOptions(srv).Retry}, "Vendor PSIRT", srv.URL)
	assert.Equal(t, "Vendor PSIRT", a.Name())

	got, err := a.FetchByDate(context.Background(), "2025-03-04")
	require.NoError(t, err)
	require.Len(t, got.Records, 2)

	first := got.Records[0]
	assert.Equal(t, "CVE-2025-7777", first.CVE())
	assert.Equal(t, "A path traversal issue.", first.Description())
	assert.Equal(t, "gateway", first.Tags())
	assert.Equal(t, "https://vendor/adv/1", first.Reference())
	assert.True(t, first.Severity().IsZero())

	// CVE found in the body when the title has none
	assert.Equal(t, "CVE-2025-8888", got.Records[1].CVE())
}

func TestAdvisory_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(advisoryRSS))
	}))
	defer srv.Close()

	a := NewAdvisory(srv.Client(), testOptions(srv), "Vendor PSIRT", "")

	got, err := a.Search(context.Background(), "router")
	require.NoError(t, err)
	assert.Equal(t, []string{"Router firmware update"}, names(got.Records))
}

func TestAdvisory_InvalidFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a feed"))
	}))
	defer srv.Close()

	_, err := NewAdvisory(srv.Client(), testOptions(srv), "Vendor PSIRT", "").FetchByDate(context.Background(), "2025-03-04")
	require.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "plain text", stripHTML("  plain \n text "))
	assert.Equal(t, "Hello world", stripHTML("<div>Hello <i>world</i></div>"))
}
