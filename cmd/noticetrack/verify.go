package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func verifyCmd() *cobra.Command {
	var noticeID string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Print the lifecycle projection for one notice",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(noticeID)
			if err != nil {
				return fmt.Errorf("invalid --notice-id: %w", err)
			}

			ctx := context.Background()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			notice, err := a.notices.GetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load notice: %w", err)
			}

			result, err := a.engine.Verify(ctx, notice)
			if err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&noticeID, "notice-id", "", "notice UUID to verify")
	cmd.MarkFlagRequired("notice-id")

	return cmd
}
