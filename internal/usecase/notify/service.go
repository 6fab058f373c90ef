package notify

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/infra/notifier"
	"vuln-feed/internal/observability/logging"
	"vuln-feed/internal/resilience/circuitbreaker"
)

const (
	workerPoolTimeout   = 5 * time.Second  // Timeout for acquiring worker slot
	notificationTimeout = 60 * time.Second // Timeout for one digest, retries included
)

// Service dispatches digests to all enabled channels.
type Service interface {
	// NotifyNewVulns dispatches a digest of vulns to every enabled channel.
	// It returns immediately; delivery happens in background goroutines and
	// failures are logged, never returned.
	NotifyNewVulns(ctx context.Context, vulns []*entity.Vuln) error

	// GetChannelHealth returns the breaker state of every channel.
	GetChannelHealth() []ChannelHealthStatus

	// Shutdown stops accepting work and waits for in-flight notifications
	// until ctx expires.
	Shutdown(ctx context.Context) error
}

// ChannelHealthStatus represents the health status of a notification channel.
type ChannelHealthStatus struct {
	Name               string
	Enabled            bool
	CircuitBreakerOpen bool
}

type service struct {
	channels []Channel
	breakers map[string]*circuitbreaker.CircuitBreaker
	pool     *semaphore.Weighted
	wg       sync.WaitGroup

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// NewService creates a notification service over channels, running at most
// maxConcurrent sends at once.
func NewService(channels []Channel, maxConcurrent int) Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	svc := &service{
		channels:       channels,
		breakers:       make(map[string]*circuitbreaker.CircuitBreaker, len(channels)),
		pool:           semaphore.NewWeighted(int64(maxConcurrent)),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	enabled := 0
	for _, ch := range channels {
		svc.breakers[ch.Name()] = circuitbreaker.New(circuitbreaker.WebhookConfig(ch.Name()))
		if ch.IsEnabled() {
			enabled++
		}
	}
	SetChannelsEnabled(float64(enabled))

	return svc
}

// NotifyNewVulns implements Service.NotifyNewVulns.
func (s *service) NotifyNewVulns(ctx context.Context, vulns []*entity.Vuln) error {
	if len(vulns) == 0 {
		return nil
	}
	if s.shutdownCtx.Err() != nil {
		return nil
	}

	requestID := notifier.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	logger := logging.FromContext(ctx).With(slog.String("request_id", requestID))

	// Copy so the caller may reuse its slice.
	digest := append([]*entity.Vuln(nil), vulns...)

	dispatched := 0
	for _, ch := range s.channels {
		if !ch.IsEnabled() {
			continue
		}
		dispatched++
		s.wg.Add(1)
		go s.notifyChannel(logger, requestID, ch, digest)
	}

	if dispatched == 0 {
		logger.Debug("no notification channels enabled", slog.Int("records", len(vulns)))
		return nil
	}
	logger.Info("dispatching vulnerability digest",
		slog.Int("records", len(vulns)),
		slog.Int("enabled_channels", dispatched))
	return nil
}

func (s *service) notifyChannel(logger *slog.Logger, requestID string, ch Channel, vulns []*entity.Vuln) {
	defer s.wg.Done()

	activeNotifications.Inc()
	defer activeNotifications.Dec()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in notification channel",
				slog.String("channel", ch.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	acquireCtx, cancelAcquire := context.WithTimeout(s.shutdownCtx, workerPoolTimeout)
	err := s.pool.Acquire(acquireCtx, 1)
	cancelAcquire()
	if err != nil {
		logger.Warn("notification dropped",
			slog.String("channel", ch.Name()),
			slog.Any("error", ErrNotificationDropped))
		RecordDropped(ch.Name(), "pool_full")
		return
	}
	defer s.pool.Release(1)

	ctx, cancel := context.WithTimeout(s.shutdownCtx, notificationTimeout)
	defer cancel()
	ctx = notifier.WithRequestID(ctx, requestID)

	start := time.Now()
	RecordDispatch(ch.Name())

	err = s.breakers[ch.Name()].Run(func() error {
		return ch.Send(ctx, vulns)
	})
	duration := time.Since(start)

	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		logger.Warn("channel temporarily disabled by circuit breaker",
			slog.String("channel", ch.Name()))
		RecordDropped(ch.Name(), "circuit_open")
	case err != nil:
		RecordFailure(ch.Name(), duration)
		logger.Warn("channel notification failed",
			slog.String("channel", ch.Name()),
			slog.Int("records", len(vulns)),
			slog.Duration("send_duration", duration),
			slog.Any("error", err))
	default:
		RecordSuccess(ch.Name(), len(vulns), duration)
		logger.Info("channel notification sent",
			slog.String("channel", ch.Name()),
			slog.Int("records", len(vulns)),
			slog.Duration("send_duration", duration))
	}
}

// GetChannelHealth implements Service.GetChannelHealth.
func (s *service) GetChannelHealth() []ChannelHealthStatus {
	statuses := make([]ChannelHealthStatus, 0, len(s.channels))
	for _, ch := range s.channels {
		statuses = append(statuses, ChannelHealthStatus{
			Name:               ch.Name(),
			Enabled:            ch.IsEnabled(),
			CircuitBreakerOpen: s.breakers[ch.Name()].IsOpen(),
		})
	}
	return statuses
}

// Shutdown implements Service.Shutdown.
func (s *service) Shutdown(ctx context.Context) error {
	slog.Info("shutting down notification service")
	s.shutdownCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("notification service shutdown complete")
		return nil
	case <-ctx.Done():
		slog.Warn("notification service shutdown timeout")
		return ctx.Err()
	}
}
