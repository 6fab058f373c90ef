package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"vuln-feed/internal/infra/transport"
	"vuln-feed/internal/resilience/circuitbreaker"
	"vuln-feed/internal/resilience/retry"
)

// maxBodySize caps a single upstream response. The KEV catalog is the
// largest payload at a few MB.
const maxBodySize = 32 << 20

// Doer sends HTTP requests. *transport.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// requestFunc builds a fresh request for each attempt.
type requestFunc func(ctx context.Context) (*http.Request, error)

// requester runs one adapter's upstream calls through retry and its
// circuit breaker.
type requester struct {
	source  string
	client  Doer
	headers *transport.Headers
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
	timeout time.Duration
}

func newRequester(source string, client Doer, opts Options, defaultTimeout time.Duration) *requester {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &requester{
		source:  source,
		client:  client,
		breaker: circuitbreaker.New(circuitbreaker.SourceConfig(source)),
		retry:   opts.retryConfig(),
		timeout: timeout,
	}
}

// fetchJSON performs the request and parses the body as JSON.
func (r *requester) fetchJSON(ctx context.Context, build requestFunc) (gjson.Result, error) {
	body, err := r.fetch(ctx, build, true)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(body), nil
}

// fetch performs the request with retries and returns the raw body.
// When wantJSON is set, a body that is not valid JSON counts as a
// retryable failure.
func (r *requester) fetch(ctx context.Context, build requestFunc, wantJSON bool) ([]byte, error) {
	var body []byte
	err := retry.WithBackoff(ctx, r.retry, func() error {
		return r.breaker.Run(func() error {
			b, err := r.attempt(ctx, build)
			if err != nil {
				return err
			}
			if wantJSON && !gjson.ValidBytes(b) {
				return fmt.Errorf("%s: %w", r.source, retry.ErrMalformedBody)
			}
			body = b
			return nil
		})
	})
	return body, err
}

func (r *requester) attempt(ctx context.Context, build requestFunc) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := build(attemptCtx)
	if err != nil {
		return nil, err
	}
	if r.headers != nil {
		r.headers.Apply(req)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w after %s", r.source, retry.ErrAttemptTimeout, r.timeout)
		}
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Debug("failed to close response body",
				slog.String("source", r.source),
				slog.Any("error", cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w after %s", r.source, retry.ErrAttemptTimeout, r.timeout)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}
