package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/output"
	"vuln-feed/internal/usecase/collect"
)

func newSourcesCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the configured sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			sources, err := opts.sources(a)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(sources))
			for _, s := range sources {
				names = append(names, s.Name())
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			return err
		},
	}
	cmd.AddCommand(newSourcesCheckCommand(opts))
	return cmd
}

func newSourcesCheckCommand(opts *Options) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fetch one date from every source and report how each did",
		Long: `check fetches a single date from every configured source and prints one
row per source with its status, record count and latency. It exits 0 even
when sources fail; the table is the result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date == "" {
				date = opts.now().Format(entity.DateLayout)
			}

			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			sources, err := opts.sources(a)
			if err != nil {
				return err
			}

			report, err := collect.NewService().FetchRange(a.ctx, date, date, sources)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.format() == output.FormatJSON {
				return output.WriteStatusJSON(out, report.Statuses)
			}
			output.WriteStatusTable(out, report.Statuses, output.IsOutputToTerminal(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date to fetch, YYYY-MM-DD (default today)")
	return cmd
}
