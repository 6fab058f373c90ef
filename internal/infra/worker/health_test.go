package worker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthServer_Endpoints(t *testing.T) {
	h := NewHealthServer(":0", discardLogger())
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	get := func(path string) int {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get("/health"))
	assert.Equal(t, http.StatusOK, get("/live"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/ready"))

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, get("/ready"))
	assert.Equal(t, http.StatusOK, get("/health/ready"))

	h.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, get("/ready"))
}
