package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"vuln-feed/internal/output"
	"vuln-feed/internal/usecase/poc"
)

// ErrNoPoCKeywords is returned by poc when no identifier was given.
var ErrNoPoCKeywords = errors.New("one of --cve, --name or --id is required")

func newPoCCommand(opts *Options) *cobra.Command {
	var (
		cve, name, otherID string
		hits               int
	)

	cmd := &cobra.Command{
		Use:   "poc",
		Short: "Find public proof-of-concept repositories for a record",
		Long: `poc searches GitHub for repositories matching the CVE id, the other id and
keywords taken from the name. Answers are cached for a day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kws := poc.Keywords(cve, name, otherID)
			if len(kws) == 0 {
				return ErrNoPoCKeywords
			}

			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			resolver, err := opts.resolver(a, hits)
			if err != nil {
				return err
			}

			urls, err := resolver.ResolveKeywords(a.ctx, kws)
			if err != nil {
				a.logger.Warn("poc lookup incomplete", slog.Any("error", err))
			}
			return output.WriteURLs(cmd.OutOrStdout(), urls, opts.format())
		},
	}

	f := cmd.Flags()
	f.StringVar(&cve, "cve", "", "CVE id")
	f.StringVar(&name, "name", "", "Vulnerability name")
	f.StringVar(&otherID, "id", "", "Vendor or feed id")
	f.IntVar(&hits, "hits", 0, "Maximum URLs (default POC_MAX_HITS or 2)")
	return cmd
}
