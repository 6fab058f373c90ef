// Package cli implements the vulnctl command line: date-range fetches,
// keyword searches and PoC lookups against the configured feeds.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vuln-feed/internal/output"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultConfigFile is read from the working directory unless --config
// names another file.
const DefaultConfigFile = "vuln_crawler_config.json"

// EnvPrefix prefixes every environment override, e.g. VULNFEED_GITHUB_TOKEN.
const EnvPrefix = "VULNFEED"

// Viper keys. Flags use the same names with dashes.
const (
	keySources          = "sources"
	keyProxyHTTP        = "proxy_http"
	keyProxyHTTPS       = "proxy_https"
	keyThreatBookCookie = "threatbook_cookie"
	keyNVDAPIKey        = "nvd_api_key"
	keyGitHubToken      = "github_token"
	keyFormat           = "format"
	keyVerbose          = "verbose"
)

// Options holds the root command state shared by every subcommand.
type Options struct {
	ConfigFile string

	v   *viper.Viper
	now func() time.Time
}

// NewRootCommand creates the root cobra command with all subcommands.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&Options{v: viper.New(), now: time.Now})
}

func newRootCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vulnctl",
		Short:   "Aggregate vulnerability records from public feeds",
		Version: Version,
		Long: `vulnctl pulls vulnerability records from several public feeds, merges
them into one deduplicated list and prints it as a table or JSON.

Examples:
  vulnctl fetch --start 2025-03-01 --end 2025-03-04
  vulnctl search log4j --format json
  vulnctl poc --cve CVE-2021-44228
  vulnctl sources check`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", DefaultConfigFile, "Config file (JSON)")
	pf.String("sources", "", "Comma-separated source keys, in precedence order")
	pf.String("proxy-http", "", "Proxy for http:// requests (host:port or URL)")
	pf.String("proxy-https", "", "Proxy for https:// requests (host:port or URL)")
	pf.String("threatbook-cookie", "", "Cookie header for the ThreatBook feed")
	pf.String("nvd-api-key", "", "NVD API key")
	pf.String("github-token", "", "GitHub token for PoC searches")
	pf.String("format", output.FormatTable, "Output format: table, json")
	pf.BoolP("verbose", "v", false, "Log adapter activity to stderr")

	for _, key := range []string{
		keySources, keyProxyHTTP, keyProxyHTTPS, keyThreatBookCookie,
		keyNVDAPIKey, keyGitHubToken, keyFormat, keyVerbose,
	} {
		_ = opts.v.BindPFlag(key, pf.Lookup(strings.ReplaceAll(key, "_", "-")))
	}

	cmd.AddCommand(
		newFetchCommand(opts),
		newSearchCommand(opts),
		newPoCCommand(opts),
		newSourcesCommand(opts),
		newConfigCommand(opts),
	)
	return cmd
}

// load merges .env, VULNFEED_* variables and the config file under the
// flags.
func (o *Options) load() error {
	_ = godotenv.Load()

	o.v.SetEnvPrefix(EnvPrefix)
	o.v.AutomaticEnv()

	o.v.SetConfigFile(o.ConfigFile)
	o.v.SetConfigType("json")
	exists, err := fileExists(o.ConfigFile)
	if err != nil {
		return err
	}
	if exists {
		if err := o.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", o.ConfigFile, err)
		}
	}

	if f := o.format(); !output.ValidFormat(f) {
		return fmt.Errorf("unknown format %q (want table or json)", f)
	}
	return nil
}

func (o *Options) format() string {
	return strings.ToLower(strings.TrimSpace(o.v.GetString(keyFormat)))
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat config: %w", err)
	}
}
