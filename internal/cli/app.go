package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"vuln-feed/internal/infra/ghsearch"
	"vuln-feed/internal/infra/pocache"
	"vuln-feed/internal/infra/source"
	"vuln-feed/internal/infra/transport"
	"vuln-feed/internal/observability/logging"
	"vuln-feed/internal/output"
	"vuln-feed/internal/usecase/collect"
	"vuln-feed/internal/usecase/poc"
)

// app is what a subcommand runs against, built once per invocation.
type app struct {
	ctx    context.Context
	logger *slog.Logger
	client *transport.Client
}

func (o *Options) newApp(cmd *cobra.Command) (*app, error) {
	level := slog.LevelWarn
	if o.v.GetBool(keyVerbose) {
		level = slog.LevelDebug
	}
	logger := logging.NewTextLogger(cmd.ErrOrStderr(), level)

	client, err := transport.New(transport.Config{
		HTTPProxy:  o.v.GetString(keyProxyHTTP),
		HTTPSProxy: o.v.GetString(keyProxyHTTPS),
	})
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	if h, hs := client.Proxies(); h != "" || hs != "" {
		logger.Debug("proxy configured", slog.String("http", h), slog.String("https", hs))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return &app{
		ctx:    logging.WithLogger(ctx, logger),
		logger: logger,
		client: client,
	}, nil
}

// sources builds the adapters from the environment, then applies the
// credential flags and the --sources selection on top.
func (o *Options) sources(a *app) ([]collect.Source, error) {
	cfg, err := source.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	registry, err := source.NewRegistry(a.client, cfg)
	if err != nil {
		return nil, err
	}
	if c := o.v.GetString(keyThreatBookCookie); c != "" {
		registry.SetThreatBookCookie(c)
	}
	if k := o.v.GetString(keyNVDAPIKey); k != "" {
		registry.SetNVDAPIKey(k)
	}

	selected, err := registry.Select(splitList(o.v.GetString(keySources)))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(selected))
	for _, s := range selected {
		names = append(names, s.Name())
	}
	a.logger.Debug("sources configured", slog.Any("sources", names))
	return selected, nil
}

func (o *Options) resolver(a *app, hits int) (*poc.Resolver, error) {
	cfg := poc.LoadConfigFromEnv()
	if t := o.v.GetString(keyGitHubToken); t != "" {
		cfg.Token = t
	}
	if hits > 0 {
		cfg.MaxHits = hits
	}

	searcher, err := ghsearch.New(ghsearch.Config{
		Token:     cfg.Token,
		Transport: a.client.HTTPClient().Transport,
	})
	if err != nil {
		return nil, err
	}

	path := cfg.CacheFile
	if path == "" {
		if path, err = pocache.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return poc.NewResolver(searcher, pocache.New(path, cfg.CacheTTL), cfg.MaxHits), nil
}

// writeReport prints the records to stdout and failed sources to stderr.
func (o *Options) writeReport(cmd *cobra.Command, report *collect.Report, title string) error {
	out := cmd.OutOrStdout()
	if o.format() == output.FormatJSON {
		if err := output.WriteJSON(out, report); err != nil {
			return err
		}
	} else {
		cfg := output.TableConfig{Title: title}
		if output.IsOutputToTerminal(out) {
			cfg.IsTerminal = true
			cfg.Width = output.TerminalWidth()
		}
		output.WriteTable(out, report.Records, cfg)
	}

	errOut := cmd.ErrOrStderr()
	output.WriteWarnings(errOut, report, output.IsOutputToTerminal(errOut))
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
