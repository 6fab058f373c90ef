// Package ghsearch searches GitHub repositories for PoC and exploit code.
package ghsearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/go-github/v60/github"
	"golang.org/x/time/rate"

	"vuln-feed/internal/resilience/circuitbreaker"
	"vuln-feed/internal/resilience/retry"
)

// Search API allowances per minute.
const (
	AnonymousPerMinute     = 10
	AuthenticatedPerMinute = 30
)

// Config configures a Searcher.
type Config struct {
	// Token is a personal access token; empty searches anonymously.
	Token string

	// BaseURL overrides https://api.github.com/.
	BaseURL string

	Timeout time.Duration

	// Transport carries the requests. Nil means http.DefaultTransport;
	// pass the shared transport to honour its proxy settings.
	Transport http.RoundTripper

	// Retry overrides retry.GitHubSearchConfig.
	Retry retry.Config

	// AnonymousPerMinute and AuthenticatedPerMinute override the
	// client-side rate limits.
	AnonymousPerMinute     int
	AuthenticatedPerMinute int
}

// Searcher runs repository searches through a rate limiter, retry and a
// circuit breaker. The token may be swapped at any time.
type Searcher struct {
	client  *github.Client
	token   *atomic.Pointer[string]
	anon    *rate.Limiter
	authed  *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
}

// New creates a Searcher.
func New(cfg Config) (*Searcher, error) {
	token := &atomic.Pointer[string]{}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: &tokenTransport{base: base, token: token},
	}

	client := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		client.BaseURL = u
	}

	rc := cfg.Retry
	if rc.MaxAttempts == 0 {
		rc = retry.GitHubSearchConfig()
	}

	s := &Searcher{
		client:  client,
		token:   token,
		anon:    perMinute(cfg.AnonymousPerMinute, AnonymousPerMinute),
		authed:  perMinute(cfg.AuthenticatedPerMinute, AuthenticatedPerMinute),
		breaker: circuitbreaker.New(circuitbreaker.GitHubSearchConfig()),
		retry:   rc,
	}
	s.SetToken(cfg.Token)
	return s, nil
}

func perMinute(n, def int) *rate.Limiter {
	if n <= 0 {
		n = def
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

// SetToken replaces the token used by later requests; empty clears it.
func (s *Searcher) SetToken(token string) {
	token = strings.TrimSpace(token)
	s.token.Store(&token)
}

// HasToken reports whether requests are authenticated.
func (s *Searcher) HasToken() bool {
	return *s.token.Load() != ""
}

// SearchRepos returns the HTML URLs of repositories matching query,
// most recently updated first.
func (s *Searcher) SearchRepos(ctx context.Context, query string, perPage int) ([]string, error) {
	limiter := s.anon
	if s.HasToken() {
		limiter = s.authed
	}

	var urls []string
	err := retry.WithBackoff(ctx, s.retry, func() error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		return s.breaker.Run(func() error {
			found, err := s.search(ctx, query, perPage)
			if err != nil {
				return err
			}
			urls = found
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("github search %q: %w", query, err)
	}
	return urls, nil
}

func (s *Searcher) search(ctx context.Context, query string, perPage int) ([]string, error) {
	result, resp, err := s.client.Search.Repositories(ctx, query, &github.SearchOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: perPage},
	})
	if err != nil {
		var rateErr *github.RateLimitError
		if errors.As(err, &rateErr) {
			return nil, &retry.HTTPError{StatusCode: http.StatusForbidden, Message: rateErr.Message}
		}
		if resp != nil && resp.StatusCode >= 400 {
			return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: err.Error()}
		}
		return nil, err
	}

	urls := make([]string, 0, len(result.Repositories))
	for _, repo := range result.Repositories {
		if u := repo.GetHTMLURL(); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// tokenTransport adds the current bearer token to each request.
type tokenTransport struct {
	base  http.RoundTripper
	token *atomic.Pointer[string]
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if tok := *t.token.Load(); tok != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return t.base.RoundTrip(req)
}
