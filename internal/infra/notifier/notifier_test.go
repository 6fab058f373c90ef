package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/resilience/retry"
)

func testVuln(t *testing.T, i int, sev entity.Severity) *entity.Vuln {
	t.Helper()
	v, err := entity.NewVuln(entity.VulnParams{
		Name:        fmt.Sprintf("Vuln <%d>", i),
		CVE:         fmt.Sprintf("CVE-2025-%04d", i),
		Date:        "2025-03-04",
		Severity:    sev,
		Source:      "OSCS",
		Description: "desc",
		Reference:   "notalink, https://example.com/" + fmt.Sprint(i),
	})
	require.NoError(t, err)
	return v
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestSlackNotifier_PostsDigest(t *testing.T) {
	var got SlackWebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: srv.URL, Timeout: time.Second})
	vulns := []*entity.Vuln{
		testVuln(t, 1, entity.Severity{Level: entity.LevelCritical, Raw: "严重"}),
		testVuln(t, 2, entity.NoSeverity),
	}
	require.NoError(t, n.NotifyVulns(context.Background(), vulns))

	assert.Equal(t, "2 new vulnerabilities", got.Text)
	require.Len(t, got.Blocks, 3)
	first := got.Blocks[1].Text.Text
	assert.Contains(t, first, "<https://example.com/1|[critical] CVE-2025-0001 Vuln &lt;1&gt;>")
	assert.Contains(t, first, "OSCS • 2025-03-04")
	assert.NotContains(t, got.Blocks[2].Text.Text, "[")
}

func TestSlackNotifier_EmptyDigestSendsNothing(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	n := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: srv.URL})
	require.NoError(t, n.NotifyVulns(context.Background(), nil))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestBuildBlockKitPayload_CapsItems(t *testing.T) {
	var vulns []*entity.Vuln
	for i := 1; i <= 13; i++ {
		vulns = append(vulns, testVuln(t, i, entity.NoSeverity))
	}
	p := buildBlockKitPayload(vulns)

	// header + 10 records + overflow context
	require.Len(t, p.Blocks, 12)
	assert.Equal(t, "context", p.Blocks[11].Type)
	assert.Equal(t, "and 3 more", p.Blocks[11].Elements[0].Text)
}

func TestDiscordNotifier_PostsEmbeds(t *testing.T) {
	var got DiscordWebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var vulns []*entity.Vuln
	for i := 1; i <= 12; i++ {
		vulns = append(vulns, testVuln(t, i, entity.Severity{Level: entity.LevelHigh}))
	}

	n := NewDiscordNotifier(DiscordConfig{Enabled: true, WebhookURL: srv.URL})
	require.NoError(t, n.NotifyVulns(context.Background(), vulns))

	assert.Equal(t, "12 new vulnerabilities (showing first 10)", got.Content)
	require.Len(t, got.Embeds, 10)
	assert.Equal(t, "[high] CVE-2025-0001 Vuln <1>", got.Embeds[0].Title)
	assert.Equal(t, "https://example.com/1", got.Embeds[0].URL)
	assert.Equal(t, colorHigh, got.Embeds[0].Color)
	assert.Equal(t, "OSCS • 2025-03-04", got.Embeds[0].Footer.Text)
}

func TestWebhook_RetryBehaviour(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantErr   bool
		wantCalls int32
	}{
		{"TC-1: 5xx then success", []int{500, 204}, false, 2},
		{"TC-2: 429 honours retry_after", []int{429, 204}, false, 2},
		{"TC-3: 4xx is final", []int{400}, true, 1},
		{"TC-4: persistent 5xx", []int{503, 503, 503}, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				status := tt.statuses[len(tt.statuses)-1]
				if int(n) <= len(tt.statuses) {
					status = tt.statuses[n-1]
				}
				if status == http.StatusTooManyRequests {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(status)
					_, _ = w.Write([]byte(`{"message": "slow down", "retry_after": 0.01}`))
					return
				}
				w.WriteHeader(status)
			}))
			defer srv.Close()

			hook := newWebhook("Test", srv.URL, time.Second, 1000, 10)
			hook.retry = fastRetry()

			err := hook.post(context.Background(), map[string]string{"k": "v"})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestWebhook_RedactsURLInTransportErrors(t *testing.T) {
	secretURL := "http://127.0.0.1:1/services/T000/B000/secret-token"
	hook := newWebhook("Slack", secretURL, 200*time.Millisecond, 1000, 10)
	hook.retry = retry.Config{MaxAttempts: 1}

	err := hook.post(context.Background(), map[string]string{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
	assert.True(t, strings.Contains(err.Error(), "[REDACTED]"))
}

func TestExtractRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, 1500*time.Millisecond, extractRetryAfter(resp, []byte(`{"retry_after": 1.5}`)))

	resp.Header.Set("Retry-After", "3")
	assert.Equal(t, 3*time.Second, extractRetryAfter(resp, []byte(`not json`)))

	assert.Equal(t, 5*time.Second, extractRetryAfter(&http.Response{Header: http.Header{}}, nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10, "..."))
	assert.Equal(t, "漏洞漏...", truncate("漏洞漏洞漏洞", 6, "..."))
}

func TestNoOpNotifier(t *testing.T) {
	assert.NoError(t, NewNoOpNotifier().NotifyVulns(context.Background(), []*entity.Vuln{testVuln(t, 1, entity.NoSeverity)}))
}
