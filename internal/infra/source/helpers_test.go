package source

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/resilience/retry"
)

// testOptions points an adapter at srv with millisecond retry waits.
func testOptions(srv *httptest.Server) Options {
	return Options{
		Endpoint: srv.URL,
		Timeout:  2 * time.Second,
		Retry: retry.Config{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1.0,
		},
	}
}

func jsonHandler(t *testing.T, fn func(r *http.Request) string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fn(r)))
	}
}

func names(vs []*entity.Vuln) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Name())
	}
	return out
}
