// Package export builds the troubleshooting workbook handed to library
// staff: one spreadsheet per date window with the reconciliation summary,
// failure rollups, and the mismatch buckets.
package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/oslri/noticetrack/internal/domain"
	"github.com/oslri/noticetrack/internal/reconcile"
	"github.com/oslri/noticetrack/internal/stats"
)

const (
	sheetSummary    = "Summary"
	sheetReasons    = "Failures by Reason"
	sheetCategories = "Failures by Category"
	sheetMismatches = "Mismatches"
)

// Service builds troubleshooting reports.
type Service struct {
	detector   *reconcile.Detector
	aggregator *stats.Aggregator
}

// NewService creates an export service over the detector and aggregator.
func NewService(detector *reconcile.Detector, aggregator *stats.Aggregator) *Service {
	return &Service{detector: detector, aggregator: aggregator}
}

// BuildReport runs one reconciliation pass plus the failure rollups for the
// window and renders them as an xlsx workbook.
func (s *Service) BuildReport(ctx context.Context, window domain.DateWindow) ([]byte, error) {
	report, err := s.detector.Mismatches(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to run reconciliation: %w", err)
	}
	byReason, err := s.aggregator.FailuresByReason(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to roll up failure reasons: %w", err)
	}
	byType, err := s.aggregator.FailuresByType(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to roll up failure categories: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummary(f, window, report.Summary); err != nil {
		return nil, err
	}
	if err := writeSlices(f, sheetReasons, "Reason", byReason); err != nil {
		return nil, err
	}
	if err := writeSlices(f, sheetCategories, "Category", byType); err != nil {
		return nil, err
	}
	if err := writeMismatches(f, report); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, window domain.DateWindow, summary reconcile.Summary) error {
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}

	rows := [][]any{
		{"Window start", window.From.Format("2006-01-02")},
		{"Window end", window.To.Format("2006-01-02")},
		{"Total verified", summary.TotalVerified},
		{"Failed", summary.Failed},
		{"Pending", summary.Pending},
		{"Assumed successful", summary.AssumedSuccessful},
		{"Success rate (%)", summary.SuccessRate},
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return nil
}

func writeSlices(f *excelize.File, sheet, label string, slices []stats.FailureSlice) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	header := []any{label, "Count", "Share (%)"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, slice := range slices {
		row := []any{slice.Label, slice.Count, slice.Share}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write slice row: %w", err)
		}
	}
	return nil
}

func writeMismatches(f *excelize.File, report reconcile.MismatchReport) error {
	if _, err := f.NewSheet(sheetMismatches); err != nil {
		return fmt.Errorf("failed to create mismatch sheet: %w", err)
	}

	line := 1
	writeRow := func(values []any) error {
		cell := fmt.Sprintf("A%d", line)
		line++
		return f.SetSheetRow(sheetMismatches, cell, &values)
	}

	if err := writeRow([]any{"Submitted, never verified"}); err != nil {
		return err
	}
	if err := writeRow([]any{"Patron barcode", "Category", "Submitted at", "Source file"}); err != nil {
		return err
	}
	for _, sub := range report.SubmittedNotVerified {
		if err := writeRow([]any{sub.PatronBarcode, sub.Category, sub.SubmittedAt.Format("2006-01-02 15:04:05"), sub.SourceFile}); err != nil {
			return err
		}
	}

	line++
	if err := writeRow([]any{"Failed deliveries"}); err != nil {
		return err
	}
	if err := writeRow([]any{"Patron barcode", "Phone", "Notice date", "Failure reason"}); err != nil {
		return err
	}
	for _, failed := range report.ActuallyFailed {
		reason := ""
		if failed.Outcome.FailureReason != nil {
			reason = *failed.Outcome.FailureReason
		}
		if err := writeRow([]any{failed.Verification.PatronBarcode, failed.Outcome.Phone, failed.Verification.NoticeDate.Format("2006-01-02 15:04:05"), reason}); err != nil {
			return err
		}
	}

	line++
	if err := writeRow([]any{"Pending verification (inside cutoff)"}); err != nil {
		return err
	}
	if err := writeRow([]any{"Patron barcode", "Phone", "Notice date"}); err != nil {
		return err
	}
	for _, pending := range report.PendingVerification {
		if err := writeRow([]any{pending.PatronBarcode, pending.Phone, pending.NoticeDate.Format("2006-01-02 15:04:05")}); err != nil {
			return err
		}
	}

	return nil
}
