package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oslri/noticetrack/internal/ingestion"
)

func importCmd() *cobra.Command {
	var feed string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Load one feed file into the record stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open feed file: %w", err)
			}
			defer file.Close()

			ctx := context.Background()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.importer.Ingest(ctx, ingestion.Request{
				Feed:     feed,
				FileName: filepath.Base(args[0]),
				Data:     file,
			})
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Printf("rows:     %d\n", summary.TotalRows)
			fmt.Printf("inserted: %d\n", summary.Inserted)
			fmt.Printf("skipped:  %d\n", summary.SkippedRows)
			if summary.SkippedRows > 0 {
				fmt.Println("skipped rows were written to the import log")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&feed, "feed", "", "feed kind: submissions, verifications, outcomes, preferences")
	cmd.MarkFlagRequired("feed")

	return cmd
}
