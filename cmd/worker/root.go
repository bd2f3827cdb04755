package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/timmy/culturemap/internal/app"
	"github.com/timmy/culturemap/internal/config"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "culturemap-worker",
		Short:         "Background imports for the culture map",
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (defaults to ./configs/config.yaml)")

	cmd.AddCommand(
		newRunCmd(opts),
		newCSVCmd(opts),
		newImportFileCmd(opts),
		newFeedCmd(opts),
	)
	return cmd
}

// open loads the configuration and builds the application with the worker pool size.
func (o *rootOptions) open(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, cfg.Database.ForWorker())
}
