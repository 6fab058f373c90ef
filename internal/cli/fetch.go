package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/usecase/collect"
)

func newFetchCommand(opts *Options) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch records published in a date range",
		Long: `Fetch walks every date from --start to --end (inclusive, YYYY-MM-DD) and
merges the records of all sources. When two sources report the same CVE,
the one listed first in --sources wins.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			today := opts.now().Format(entity.DateLayout)
			if start == "" {
				start = today
			}
			if end == "" {
				end = today
			}

			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			sources, err := opts.sources(a)
			if err != nil {
				return err
			}

			report, err := collect.NewService().FetchRange(a.ctx, start, end, sources)
			if err != nil {
				return err
			}

			title := fmt.Sprintf("Vulnerabilities %s", start)
			if end != start {
				title = fmt.Sprintf("Vulnerabilities %s to %s", start, end)
			}
			return opts.writeReport(cmd, report, title)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&end, "end", "", "Last date, YYYY-MM-DD (default today)")
	return cmd
}
