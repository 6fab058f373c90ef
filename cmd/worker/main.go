// Command worker keeps a refreshed snapshot of recent vulnerability
// records, notifies chat channels about new ones and serves the read-only
// query API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	hhttp "vuln-feed/internal/handler/http"
	"vuln-feed/internal/handler/http/respond"
	"vuln-feed/internal/infra/ghsearch"
	"vuln-feed/internal/infra/notifier"
	"vuln-feed/internal/infra/pocache"
	"vuln-feed/internal/infra/source"
	"vuln-feed/internal/infra/transport"
	workerPkg "vuln-feed/internal/infra/worker"
	"vuln-feed/internal/observability/logging"
	"vuln-feed/internal/observability/tracing"
	"vuln-feed/internal/usecase/collect"
	"vuln-feed/internal/usecase/notify"
	"vuln-feed/internal/usecase/poc"
	"vuln-feed/internal/usecase/refresh"
	envconfig "vuln-feed/pkg/config"
	"vuln-feed/pkg/ratelimit"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker exited", slog.String("error", respond.SanitizeError(err)))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Init(envconfig.GetEnvFloat("TRACE_SAMPLE_RATIO", 0.1))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	workerMetrics := workerPkg.NewWorkerMetrics(nil)
	cfg := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("refresh_schedule", cfg.RefreshSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.Int("lookback_days", cfg.LookbackDays),
		slog.Duration("refresh_timeout", cfg.RefreshTimeout),
		slog.Int("search_concurrency", cfg.SearchConcurrency),
		slog.Int("health_port", cfg.HealthPort),
		slog.Int("metrics_port", cfg.MetricsPort))

	client, err := transport.New(transport.Config{
		HTTPProxy:  envconfig.GetEnvString("HTTP_PROXY_URL", ""),
		HTTPSProxy: envconfig.GetEnvString("HTTPS_PROXY_URL", ""),
	})
	if err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	if h, hs := client.Proxies(); h != "" || hs != "" {
		logger.Info("outbound proxy configured", slog.String("http", h), slog.String("https", hs))
	}

	sourceCfg, err := source.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	sourceCfg.Location = cfg.Location()
	registry, err := source.NewRegistry(client, sourceCfg)
	if err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	logger.Info("sources configured", slog.Any("sources", registry.Keys()))

	resolver, err := newResolver(client)
	if err != nil {
		return fmt.Errorf("poc resolver: %w", err)
	}

	notifyService := notify.NewService(newChannels(logger), cfg.NotifyMaxConcurrent)

	refreshService := refresh.NewService(collect.NewService(), registry.Sources(), notifyService, refresh.Config{
		LookbackDays:      cfg.LookbackDays,
		SearchConcurrency: cfg.SearchConcurrency,
		Location:          cfg.Location(),
	})

	limits, err := loadAPILimits(logger)
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger)
	apiServer := newAPIServer(cfg.MetricsPort, logger, refreshService, resolver, notifyService, limits)

	g, gctx := errgroup.WithContext(ctx)
	if limits.limiter != nil {
		g.Go(func() error { return limits.limiter.Run(gctx) })
	}
	g.Go(func() error { return ignoreClosed(healthServer.Start(gctx)) })
	g.Go(func() error { return ignoreClosed(serve(gctx, logger, apiServer)) })
	g.Go(func() error {
		return runScheduler(gctx, logger, cfg, refreshService, workerMetrics, healthServer)
	})

	err = g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if nerr := notifyService.Shutdown(shutdownCtx); nerr != nil {
		logger.Warn("notification shutdown incomplete", slog.Any("error", nerr))
	}
	logger.Info("worker stopped")
	return err
}

// loadAPILimits reads the RATE_LIMIT_* settings and TRUSTED_PROXIES. An
// invalid limit configuration falls back to the defaults.
func loadAPILimits(logger *slog.Logger) (apiLimits, error) {
	trusted, err := hhttp.ParseTrustedProxies(envconfig.GetEnvString("TRUSTED_PROXIES", ""))
	if err != nil {
		return apiLimits{}, err
	}

	cfg := ratelimit.LoadConfigFromEnv()
	if !cfg.Enabled {
		logger.Info("api rate limiting disabled")
		return apiLimits{trusted: trusted}, nil
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("invalid rate limit configuration, using defaults", slog.Any("error", err))
		cfg = ratelimit.DefaultConfig()
	}
	return apiLimits{
		limiter: ratelimit.NewLimiter(cfg, nil, ratelimit.NewMetrics(nil)),
		trusted: trusted,
	}, nil
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func newResolver(client *transport.Client) (*poc.Resolver, error) {
	pocCfg := poc.LoadConfigFromEnv()
	searcher, err := ghsearch.New(ghsearch.Config{
		Token:     pocCfg.Token,
		Transport: client.HTTPClient().Transport,
	})
	if err != nil {
		return nil, err
	}

	path := pocCfg.CacheFile
	if path == "" {
		if path, err = pocache.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return poc.NewResolver(searcher, pocache.New(path, pocCfg.CacheTTL), pocCfg.MaxHits), nil
}

// runScheduler runs one refresh at startup, then on the cron schedule
// until ctx is cancelled. Overlapping runs are skipped.
func runScheduler(ctx context.Context, logger *slog.Logger, cfg *workerPkg.WorkerConfig, svc *refresh.Service, metrics *workerPkg.WorkerMetrics, health *workerPkg.HealthServer) error {
	job := func() { runRefreshJob(ctx, logger, svc, cfg, metrics) }

	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(cfg.RefreshSchedule, job); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}

	job()
	health.SetReady(true)

	c.Start()
	logger.Info("worker started",
		slog.String("schedule", cfg.RefreshSchedule),
		slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	health.SetReady(false)
	<-c.Stop().Done()
	return nil
}

func runRefreshJob(parent context.Context, logger *slog.Logger, svc *refresh.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	if parent.Err() != nil {
		return
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, cfg.RefreshTimeout)
	defer cancel()

	snap, err := svc.Refresh(ctx)
	elapsed := time.Since(start).Seconds()
	switch {
	case errors.Is(err, refresh.ErrStale):
		metrics.RecordRun(workerPkg.RunStale, elapsed, 0, 0)
	case err != nil:
		logger.Error("refresh failed", slog.String("error", respond.SanitizeError(err)))
		metrics.RecordRun(workerPkg.RunFailure, elapsed, 0, 0)
	default:
		status := workerPkg.RunSuccess
		for _, st := range snap.Statuses {
			if st.Err != nil || st.Truncated {
				status = workerPkg.RunPartial
				break
			}
		}
		metrics.RecordRun(status, elapsed, len(snap.Records), snap.NewRecords)
	}
}

func newChannels(logger *slog.Logger) []notify.Channel {
	return []notify.Channel{
		notify.NewDiscordChannel(loadDiscordConfig(logger)),
		notify.NewSlackChannel(loadSlackConfig(logger)),
	}
}

// validateWebhookURL accepts only https URLs on host with the given path
// prefix.
func validateWebhookURL(raw, host, pathPrefix string) error {
	if raw == "" {
		return errors.New("webhook URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid webhook URL format")
	}
	if u.Scheme != "https" {
		return errors.New("webhook URL must use HTTPS")
	}
	if u.Host != host {
		return fmt.Errorf("invalid webhook host %q", u.Host)
	}
	if !strings.HasPrefix(u.Path, pathPrefix) {
		return errors.New("invalid webhook path")
	}
	return nil
}

func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	if !envconfig.GetEnvBool("DISCORD_ENABLED", false) {
		return notifier.DiscordConfig{}
	}
	webhookURL := envconfig.GetEnvString("DISCORD_WEBHOOK_URL", "")
	if err := validateWebhookURL(webhookURL, "discord.com", "/api/webhooks/"); err != nil {
		logger.Warn("Discord notifications disabled", slog.Any("error", err))
		return notifier.DiscordConfig{}
	}
	return notifier.DiscordConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	if !envconfig.GetEnvBool("SLACK_ENABLED", false) {
		return notifier.SlackConfig{}
	}
	webhookURL := envconfig.GetEnvString("SLACK_WEBHOOK_URL", "")
	if err := validateWebhookURL(webhookURL, "hooks.slack.com", "/services/"); err != nil {
		logger.Warn("Slack notifications disabled", slog.Any("error", err))
		return notifier.SlackConfig{}
	}
	return notifier.SlackConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}
