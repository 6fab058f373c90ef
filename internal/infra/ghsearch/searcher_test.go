package ghsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vuln-feed/internal/resilience/retry"
)

func newTestSearcher(t *testing.T, srv *httptest.Server, token string) *Searcher {
	t.Helper()
	s, err := New(Config{
		Token:   token,
		BaseURL: srv.URL,
		Retry: retry.Config{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1.0,
		},
		AnonymousPerMinute:     600,
		AuthenticatedPerMinute: 600,
	})
	require.NoError(t, err)
	return s
}

func TestSearcher_SearchRepos(t *testing.T) {
	var mu sync.Mutex
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/repositories", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, `"CVE-2025-0001" in:name,description`, q.Get("q"))
		assert.Equal(t, "updated", q.Get("sort"))
		assert.Equal(t, "2", q.Get("per_page"))

		mu.Lock()
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_count": 2, "items": [
			{"full_name": "a/poc", "html_url": "https://github.com/a/poc"},
			{"full_name": "b/exp", "html_url": "https://github.com/b/exp"}
		]}`))
	}))
	defer srv.Close()

	s := newTestSearcher(t, srv, "ghp_first")
	ctx := context.Background()

	urls, err := s.SearchRepos(ctx, `"CVE-2025-0001" in:name,description`, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/a/poc", "https://github.com/b/exp"}, urls)
	assert.True(t, s.HasToken())

	s.SetToken("")
	assert.False(t, s.HasToken())
	_, err = s.SearchRepos(ctx, `"CVE-2025-0001" in:name,description`, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer ghp_first", ""}, auths)
}

func TestSearcher_ServerErrorIsRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_count": 0, "items": []}`))
	}))
	defer srv.Close()

	urls, err := newTestSearcher(t, srv, "").SearchRepos(context.Background(), "x", 2)
	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSearcher_ValidationErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Validation Failed"}`))
	}))
	defer srv.Close()

	_, err := newTestSearcher(t, srv, "").SearchRepos(context.Background(), "x", 2)

	var httpErr *retry.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
