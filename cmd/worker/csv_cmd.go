package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timmy/culturemap/internal/logger"
)

func newCSVCmd(opts *rootOptions) *cobra.Command {
	var importID string

	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Process one scheduled import now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.SetImportID(cmd.Context(), importID)
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, claimed, err := a.CSV.Run(ctx, importID)
			if err != nil {
				return err
			}
			if !claimed {
				return fmt.Errorf("import %s is not in PROCESS", importID)
			}
			printStats(cmd, stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&importID, "id", "", "Import ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
