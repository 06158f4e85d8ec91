package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/oslri/noticetrack/internal/domain"
	"github.com/oslri/noticetrack/internal/reconcile"
	"github.com/oslri/noticetrack/internal/stats"
	"github.com/oslri/noticetrack/internal/testutil"
)

func TestBuildReportSheets(t *testing.T) {
	stores := testutil.NewStores()
	ctx := context.Background()
	now := time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)
	window := domain.DateWindow{From: now.AddDate(0, 0, -7), To: now}

	reason := "No answer"
	if _, err := stores.Verifications.Create(ctx, domain.VerificationRecord{
		PatronBarcode: "21234001234567",
		Phone:         "5035551234",
		NoticeDate:    now.Add(-30 * time.Hour),
	}); err != nil {
		t.Fatalf("seeding verification: %v", err)
	}
	if _, err := stores.Outcomes.Create(ctx, domain.DeliveryOutcome{
		Phone:         "5035551234",
		SentAt:        now.Add(-29 * time.Hour),
		Status:        domain.StatusFailed,
		FailureReason: &reason,
	}); err != nil {
		t.Fatalf("seeding outcome: %v", err)
	}

	detector := reconcile.NewDetector(
		stores.Submissions, stores.Verifications, stores.Outcomes,
		domain.DefaultWindowPolicy(),
		reconcile.WithNow(func() time.Time { return now }),
	)
	aggregator := stats.NewAggregator(stores.Submissions, stores.Outcomes)

	report, err := NewService(detector, aggregator).BuildReport(ctx, window)
	if err != nil {
		t.Fatalf("build report returned error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(report))
	if err != nil {
		t.Fatalf("workbook does not open: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{sheetSummary, sheetReasons, sheetCategories, sheetMismatches} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Errorf("missing sheet %q", sheet)
		}
	}

	failed, err := f.GetCellValue(sheetSummary, "B4")
	if err != nil {
		t.Fatalf("reading summary cell: %v", err)
	}
	if failed != "1" {
		t.Errorf("summary failed cell = %q, want 1", failed)
	}

	topReason, err := f.GetCellValue(sheetReasons, "A2")
	if err != nil {
		t.Fatalf("reading reason cell: %v", err)
	}
	if topReason != "No answer" {
		t.Errorf("top reason = %q, want No answer", topReason)
	}
}
