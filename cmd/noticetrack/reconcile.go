package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oslri/noticetrack/internal/domain"
)

func reconcileCmd() *cobra.Command {
	var fromStr, toStr string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run a reconciliation pass over a date window",
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := parseWindow(fromStr, toStr)
			if err != nil {
				return err
			}

			ctx := context.Background()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.detector.Mismatches(ctx, window)
			if err != nil {
				return fmt.Errorf("reconciliation pass failed: %w", err)
			}

			fmt.Printf("window: %s .. %s\n", window.From.Format("2006-01-02"), window.To.Format("2006-01-02"))
			fmt.Printf("total verified:      %d\n", report.Summary.TotalVerified)
			fmt.Printf("failed:              %d\n", report.Summary.Failed)
			fmt.Printf("pending:             %d\n", report.Summary.Pending)
			fmt.Printf("assumed successful:  %d\n", report.Summary.AssumedSuccessful)
			fmt.Printf("success rate:        %.2f%%\n", report.Summary.SuccessRate)
			fmt.Printf("submitted, never verified: %d\n", len(report.SubmittedNotVerified))
			if report.Truncated.SubmittedNotVerified || report.Truncated.PendingVerification || report.Truncated.ActuallyFailed {
				fmt.Println("warning: one or more buckets were truncated, narrow the window for a complete listing")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromStr, "from", "", "window start (YYYY-MM-DD), default 7 days ago")
	cmd.Flags().StringVar(&toStr, "to", "", "window end (YYYY-MM-DD), default today")

	return cmd
}

func parseWindow(fromStr, toStr string) (domain.DateWindow, error) {
	now := time.Now()
	window := domain.DateWindow{From: domain.Day(now.AddDate(0, 0, -7)), To: now}

	if fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return domain.DateWindow{}, fmt.Errorf("invalid --from date: %w", err)
		}
		window.From = from
	}
	if toStr != "" {
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return domain.DateWindow{}, fmt.Errorf("invalid --to date: %w", err)
		}
		// Include the whole end day.
		window.To = to.Add(24*time.Hour - time.Nanosecond)
	}
	return window, nil
}
