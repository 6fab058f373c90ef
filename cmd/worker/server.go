package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vuln-feed/internal/common/pagination"
	hhttp "vuln-feed/internal/handler/http"
	"vuln-feed/internal/handler/http/respond"
	"vuln-feed/internal/handler/http/vuln"
	"vuln-feed/internal/observability/tracing"
	"vuln-feed/internal/usecase/notify"
	"vuln-feed/pkg/ratelimit"
)

const apiRequestTimeout = 90 * time.Second

// ChannelHealthResponse is the body of /health/channels.
type ChannelHealthResponse struct {
	Healthy  bool            `json:"healthy"`
	Channels []ChannelStatus `json:"channels"`
}

// ChannelStatus describes one notification channel.
type ChannelStatus struct {
	Name               string `json:"name"`
	Enabled            bool   `json:"enabled"`
	CircuitBreakerOpen bool   `json:"circuit_breaker_open"`
}

// apiLimits throttles /api/ per client. A nil limiter disables it.
type apiLimits struct {
	limiter *ratelimit.Limiter
	trusted []netip.Prefix
}

// newAPIServer builds the server for /metrics, /health/channels and the
// query API.
func newAPIServer(port int, logger *slog.Logger, feed vuln.Feed, resolver vuln.Resolver, notifyService notify.Service, limits apiLimits) *http.Server {
	api := http.NewServeMux()
	vuln.Register(api, feed, resolver, pagination.LoadFromEnv())

	mws := []func(http.Handler) http.Handler{
		hhttp.RequestID,
		tracing.Middleware,
		hhttp.Recover(logger),
		hhttp.Logging(logger),
		hhttp.SecurityHeaders,
	}
	if limits.limiter != nil {
		mws = append(mws, hhttp.RateLimit(limits.limiter, limits.trusted))
	}
	// Metrics reads the matched route pattern, so it wraps the mux directly.
	mws = append(mws, hhttp.Timeout(apiRequestTimeout), hhttp.Metrics)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /health/channels", channelHealthHandler(notifyService))
	mux.Handle("/api/", hhttp.Chain(api, mws...))

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: apiRequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, logger *slog.Logger, server *http.Server) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("api server starting", slog.String("addr", server.Addr))
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	logger.Info("api server shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", slog.Any("error", err))
		return err
	}
	logger.Info("api server stopped")
	return http.ErrServerClosed
}

func channelHealthHandler(notifyService notify.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := notifyService.GetChannelHealth()

		resp := ChannelHealthResponse{Healthy: true, Channels: make([]ChannelStatus, 0, len(statuses))}
		for _, s := range statuses {
			resp.Channels = append(resp.Channels, ChannelStatus{
				Name:               s.Name,
				Enabled:            s.Enabled,
				CircuitBreakerOpen: s.CircuitBreakerOpen,
			})
			if s.Enabled && s.CircuitBreakerOpen {
				resp.Healthy = false
			}
		}

		code := http.StatusOK
		if !resp.Healthy {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(w, code, resp)
	}
}
