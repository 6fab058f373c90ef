package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/usecase/collect"
)

var cveInText = regexp.MustCompile(`(?i)CVE-\d{4}-\d{4,}`)

// Advisory adapts a vendor or CERT advisory RSS/Atom feed. Feeds carry no
// severity, so no filter applies; the CVE is taken from the title or body.
type Advisory struct {
	req *requester
	url string
}

// NewAdvisory creates an advisory feed adapter named title.
func NewAdvisory(client Doer, opts Options, title, feedURL string) *Advisory {
	return &Advisory{
		req: newRequester(title, client, opts, 10*time.Second),
		url: opts.endpoint(feedURL),
	}
}

// Name implements collect.Source.
func (a *Advisory) Name() string { return a.req.source }

// FetchByDate implements collect.Source.
func (a *Advisory) FetchByDate(ctx context.Context, date string) (collect.Batch, error) {
	return a.collect(ctx, func(v *entity.Vuln) bool { return v.Date() == date })
}

// Search implements collect.Source.
func (a *Advisory) Search(ctx context.Context, keyword string) (collect.Batch, error) {
	return a.collect(ctx, newMatcher(keyword).match)
}

func (a *Advisory) collect(ctx context.Context, keep func(*entity.Vuln) bool) (collect.Batch, error) {
	body, err := a.req.fetch(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
		return req, nil
	}, false)
	if err != nil {
		return collect.Batch{}, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return collect.Batch{}, fmt.Errorf("%s: parse feed: %w", a.Name(), err)
	}

	var out []*entity.Vuln
	for _, it := range feed.Items {
		if v, ok := a.toVuln(it); ok && keep(v) {
			out = append(out, v)
		}
	}
	return collect.Batch{Records: out}, nil
}

func (a *Advisory) toVuln(it *gofeed.Item) (*entity.Vuln, bool) {
	var date string
	switch {
	case it.PublishedParsed != nil:
		date = it.PublishedParsed.UTC().Format(entity.DateLayout)
	case it.UpdatedParsed != nil:
		date = it.UpdatedParsed.UTC().Format(entity.DateLayout)
	}

	body := it.Description
	if body == "" {
		body = it.Content
	}
	desc := stripHTML(body)

	cve := cveInText.FindString(it.Title)
	if cve == "" {
		cve = cveInText.FindString(desc)
	}

	return newRecord(entity.VulnParams{
		Name:        it.Title,
		CVE:         cve,
		Date:        date,
		Severity:    entity.NoSeverity,
		Tags:        strings.Join(it.Categories, ", "),
		Source:      a.Name(),
		Description: desc,
		Reference:   it.Link,
	})
}

// stripHTML returns the visible text of an HTML fragment with runs of
// whitespace collapsed.
func stripHTML(fragment string) string {
	if !strings.ContainsRune(fragment, '<') {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
