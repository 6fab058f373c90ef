package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vuln-feed/internal/infra/source"
)

// ErrEmptyToken is returned by set-token for a blank token.
var ErrEmptyToken = errors.New("token is required")

func newConfigCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change stored settings",
	}
	cmd.AddCommand(newSetTokenCommand(opts), newShowCommand(opts))
	return cmd
}

func newSetTokenCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "set-token <token>",
		Short: "Store the GitHub token in the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			if token == "" {
				return ErrEmptyToken
			}

			// A separate instance keeps flags and env out of the file.
			fv := viper.New()
			fv.SetConfigFile(opts.ConfigFile)
			fv.SetConfigType("json")
			exists, err := fileExists(opts.ConfigFile)
			if err != nil {
				return err
			}
			if exists {
				if err := fv.ReadInConfig(); err != nil {
					return fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
				}
			}

			fv.Set(keyGitHubToken, token)
			if err := fv.WriteConfigAs(opts.ConfigFile); err != nil {
				return fmt.Errorf("write config %s: %w", opts.ConfigFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "GitHub token saved to %s\n", opts.ConfigFile)
			return nil
		},
	}
}

func newShowCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := opts.v
			sources := v.GetString(keySources)
			if sources == "" {
				sources = strings.Join(source.DefaultOrder, ",") + " (default)"
			}

			w := cmd.OutOrStdout()
			row := func(k, val string) { fmt.Fprintf(w, "%-18s %s\n", k+":", val) }
			row("config file", opts.ConfigFile)
			row("sources", sources)
			row("format", opts.format())
			row("proxy http", orNone(v.GetString(keyProxyHTTP)))
			row("proxy https", orNone(v.GetString(keyProxyHTTPS)))
			row("github token", mask(v.GetString(keyGitHubToken)))
			row("threatbook cookie", mask(v.GetString(keyThreatBookCookie)))
			row("nvd api key", mask(v.GetString(keyNVDAPIKey)))
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// mask keeps the first and last four characters of long secrets.
func mask(secret string) string {
	switch {
	case secret == "":
		return "(not set)"
	case len(secret) <= 12:
		return "****"
	default:
		return secret[:4] + "****" + secret[len(secret)-4:]
	}
}
