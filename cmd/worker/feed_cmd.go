package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newFeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Run one feed synchronisation now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Feed == nil {
				return errors.New("feed import is disabled, set feed.enabled")
			}

			stats, err := a.Feed.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run=%s events=%d created=%d updated=%d unchanged=%d skipped=%d deleted=%d failed=%d duration=%s\n",
				stats.RunID, stats.Events, stats.Created, stats.Updated, stats.Unchanged, stats.Skipped, stats.Deleted, stats.Failed, stats.Duration)
			return nil
		},
	}
}
