package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/timmy/culturemap/internal/csvimport"
	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/service"
)

func newImportFileCmd(opts *rootOptions) *cobra.Command {
	var (
		file  string
		title string
		owner string
	)

	cmd := &cobra.Command{
		Use:   "import-file",
		Short: "Upload, map and process a local file with the fixed script delimiter",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			svc := service.NewImportService(a.Imports, a.Files, a.Script, nil, nil)
			imp, err := svc.Upload(ctx, service.UploadRequest{
				Title:    title,
				Filename: filepath.Base(file),
				OwnerID:  owner,
				Body:     f,
			})
			if err != nil {
				return err
			}
			if imp.Status != domain.ImportStatusAssign {
				return fmt.Errorf("import %s cannot be mapped: %v", imp.ID, imp.Errors)
			}
			if _, err := svc.Schedule(ctx, imp.ID); err != nil {
				return fmt.Errorf("import %s: %w", imp.ID, err)
			}

			stats, _, err := a.Script.Run(ctx, imp.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "import %s\n", imp.ID)
			printStats(cmd, stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path of the CSV file")
	cmd.Flags().StringVar(&title, "title", "", "Import title (defaults to the file name)")
	cmd.Flags().StringVar(&owner, "owner", "", "Owner recorded on the import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printStats(cmd *cobra.Command, stats *csvimport.RunStats) {
	fmt.Fprintf(cmd.OutOrStdout(), "status=%s rows=%d created=%d updated=%d failed=%d warnings=%d duration=%s\n",
		stats.Status, stats.Rows, stats.Created, stats.Updated, stats.Failed, stats.Warnings, stats.Duration)
}
