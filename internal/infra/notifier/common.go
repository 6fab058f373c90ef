package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/resilience/retry"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID tags ctx with the dispatch request id used in logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// maxDigestItems caps the records listed in one message; the rest are
// summarised as a count.
const maxDigestItems = 10

// RateLimitError represents a 429 response with the server's requested
// back-off.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// Unwrap exposes the status so the retry policy treats it as a 429.
func (e *RateLimitError) Unwrap() error {
	return &retry.HTTPError{StatusCode: http.StatusTooManyRequests, Message: e.Message}
}

// webhook posts JSON payloads to one URL under a rate limit and the
// webhook retry policy.
type webhook struct {
	service string
	url     string
	client  *http.Client
	limiter *rate.Limiter
	retry   retry.Config
}

func newWebhook(service, url string, timeout time.Duration, limit rate.Limit, burst int) *webhook {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &webhook{
		service: service,
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		retry:   retry.WebhookConfig(),
	}
}

// post waits for the limiter, then sends payload with retries. A 429 waits
// for the server's retry-after before the next attempt.
func (w *webhook) post(ctx context.Context, payload any) error {
	requestID := RequestIDFromContext(ctx)

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	attempt := 0
	err = retry.WithBackoff(ctx, w.retry, func() error {
		attempt++
		err := w.send(ctx, body)
		if rl, ok := err.(*RateLimitError); ok {
			slog.Warn("webhook rate limit hit, backing off",
				slog.String("request_id", requestID),
				slog.String("service", w.service),
				slog.Duration("retry_after", rl.RetryAfter),
				slog.Int("attempt", attempt))
			select {
			case <-time.After(rl.RetryAfter):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%s notification failed: %w", w.service, err)
	}

	slog.Info("webhook notification sent",
		slog.String("request_id", requestID),
		slog.String("service", w.service),
		slog.Int("attempts", attempt))
	return nil
}

func (w *webhook) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		// *url.Error embeds the webhook URL, which carries its token.
		return fmt.Errorf("execute http request: %w", redact(err, w.url))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    w.service + " rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, respBody),
		}
	default:
		return &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API error: %s", w.service, truncate(string(respBody), 200, "...")),
		}
	}
}

// extractRetryAfter reads retry_after (seconds) from a JSON body, then the
// Retry-After header, defaulting to 5s.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.RetryAfter > 0 {
		return time.Duration(payload.RetryAfter * float64(time.Second))
	}
	if h := resp.Header.Get("Retry-After"); h != "" {
		if seconds, err := strconv.Atoi(h); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 5 * time.Second
}

// truncate shortens text to maxRunes runes including suffix.
func truncate(text string, maxRunes int, suffix string) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	keep := maxRunes - utf8.RuneCountInString(suffix)
	if keep < 0 {
		keep = 0
	}
	return string([]rune(text)[:keep]) + suffix
}

// headline is the one-line form of a record used in every digest.
func headline(v *entity.Vuln) string {
	id := v.CVE()
	if id == "" {
		id = v.OtherID()
	}
	s := v.Name()
	if id != "" {
		s = id + " " + s
	}
	if sev := v.Severity().String(); sev != "" {
		s = "[" + sev + "] " + s
	}
	return s
}

func digestTitle(n int) string {
	if n == 1 {
		return "1 new vulnerability"
	}
	return fmt.Sprintf("%d new vulnerabilities", n)
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// redact removes secret from err's message while keeping it unwrappable.
func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "[REDACTED]"), err: err}
}
