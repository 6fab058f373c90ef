package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kevCatalog = `{"catalogVersion": "2025.03.04", "vulnerabilities": [
	{"cveID": "CVE-2025-0101", "vendorProject": "Ivanti", "vulnerabilityName": "Ivanti Connect Secure Stack Overflow", "dateAdded": "2025-03-04", "shortDescription": "overflow", "notes": "https://ivanti"},
	{"cveID": "CVE-2024-0202", "vendorProject": "Cisco", "vulnerabilityName": "Cisco IOS XE Privilege Escalation", "dateAdded": "2025-03-03"}
]}`

func TestKEV_MemoizesCatalog(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request) string {
		atomic.AddInt32(&calls, 1)
		return kevCatalog
	}))
	defer srv.Close()

	now := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	opts := testOptions(srv)
	opts.Now = func() time.Time { return now }
	k := NewKEV(srv.Client(), opts, time.Minute)
	ctx := context.Background()

	got, err := k.FetchByDate(ctx, "2025-03-04")
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	v := got.Records[0]
	assert.Equal(t, "CVE-2025-0101", v.CVE())
	assert.True(t, v.Severity().IsZero())
	assert.Equal(t, "Ivanti", v.Tags())
	assert.Equal(t, "overflow", v.Description())

	got, err = k.FetchByDate(ctx, "2025-03-03")
	require.NoError(t, err)
	assert.Len(t, got.Records, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	now = now.Add(2 * time.Minute)
	_, err = k.Search(ctx, "cisco")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestKEV_Search(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, func(r *http.Request) string { return kevCatalog }))
	defer srv.Close()

	k := NewKEV(srv.Client(), testOptions(srv), 0)

	got, err := k.Search(context.Background(), "cve-2024-0202")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cisco IOS XE Privilege Escalation"}, names(got.Records))

	got, err = k.Search(context.Background(), "connect secure")
	require.NoError(t, err)
	assert.Len(t, got.Records, 1)
}

func TestKEV_FailureIsNotMemoized(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(kevCatalog))
	}))
	defer srv.Close()

	k := NewKEV(srv.Client(), testOptions(srv), 0)

	_, err := k.FetchByDate(context.Background(), "2025-03-04")
	require.Error(t, err)

	got, err := k.FetchByDate(context.Background(), "2025-03-04")
	require.NoError(t, err)
	assert.Len(t, got.Records, 1)
}
