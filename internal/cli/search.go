package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vuln-feed/internal/usecase/collect"
)

func newSearchCommand(opts *Options) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search every source for a keyword or CVE id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			sources, err := opts.sources(a)
			if err != nil {
				return err
			}

			report, err := collect.NewService().SearchAll(a.ctx, args[0], sources, concurrency)
			if err != nil {
				return err
			}
			return opts.writeReport(cmd, report, fmt.Sprintf("Search: %s", args[0]))
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", collect.DefaultSearchConcurrency, "Sources searched at once")
	return cmd
}
