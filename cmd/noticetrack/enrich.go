package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func enrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Run the backfill rules once and report rows changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			counts, err := a.enricher.EnrichAll(ctx)
			if err != nil {
				return fmt.Errorf("enrichment run failed: %w", err)
			}

			fmt.Printf("channels:   %d\n", counts.Channels)
			fmt.Printf("categories: %d\n", counts.Categories)
			fmt.Printf("references: %d\n", counts.References)
			fmt.Printf("total:      %d\n", counts.Total())
			return nil
		},
	}
}
