package enrichment

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/oslri/noticetrack/internal/domain"
	"github.com/oslri/noticetrack/internal/testutil"
)

var day = time.Date(2025, 11, 9, 0, 0, 0, 0, time.UTC)

func newTestEngine(stores *testutil.Stores) *Engine {
	return NewEngine(
		stores.Notices,
		stores.Submissions,
		stores.Verifications,
		stores.Outcomes,
		stores.Preferences,
	)
}

func intPtr(v int) *int { return &v }

func TestChannelBackfill(t *testing.T) {
	stores := testutil.NewStores()
	ctx := context.Background()

	if _, err := stores.Submissions.Create(ctx, domain.SubmissionRecord{
		PatronBarcode: "21234001234567",
		Category:      domain.SubmissionCategoryHolds,
		SubmittedAt:   day.Add(9 * time.Hour),
	}); err != nil {
		t.Fatalf("seeding submission: %v", err)
	}
	// Already-set rows must be left alone.
	if _, err := stores.Submissions.Create(ctx, domain.SubmissionRecord{
		PatronBarcode:    "21234001234567",
		Category:         domain.SubmissionCategoryHolds,
		SubmittedAt:      day.Add(10 * time.Hour),
		DeliveryOptionID: intPtr(domain.ChannelSMS),
	}); err != nil {
		t.Fatalf("seeding submission: %v", err)
	}
	if _, err := stores.Preferences.Create(ctx, domain.PatronPreference{
		PatronBarcode:    "21234001234567",
		DeliveryOptionID: domain.ChannelVoice,
		RecordedAt:       day.Add(6 * time.Hour),
	}); err != nil {
		t.Fatalf("seeding preference: %v", err)
	}

	counts, err := newTestEngine(stores).EnrichAll(ctx)
	if err != nil {
		t.Fatalf("enrich returned error: %v", err)
	}
	if counts.Channels != 1 {
		t.Errorf("channel backfills = %d, want 1", counts.Channels)
	}

	rows := stores.Submissions.Rows()
	for _, rec := range rows {
		if rec.DeliveryOptionID == nil {
			t.Errorf("row %s still missing channel", rec.ID)
		}
	}
	// The pre-set SMS row must keep its original value.
	for _, rec := range rows {
		if rec.SubmittedAt.Equal(day.Add(10*time.Hour)) && *rec.DeliveryOptionID != domain.ChannelSMS {
			t.Errorf("pre-set channel was overwritten to %d", *rec.DeliveryOptionID)
		}
	}
}

func TestChannelBackfillRequiresSameDayPreference(t *testing.T) {
	stores := testutil.NewStores()
	ctx := context.Background()

	if _, err := stores.Submissions.Create(ctx, domain.SubmissionRecord{
		PatronBarcode: "21234001234567",
		Category:      domain.SubmissionCategoryHolds,
		SubmittedAt:   day.Add(9 * time.Hour),
	}); err != nil {
		t.Fatalf("seeding submission: %v", err)
	}
	if _, err := stores.Preferences.Create(ctx, domain.PatronPreference{
		PatronBarcode:    "21234001234567",
		DeliveryOptionID: domain.ChannelVoice,
		RecordedAt:       day.AddDate(0, 0, -1), // previous day's snapshot
	}); err != nil {
		t.Fatalf("seeding preference: %v", err)
	}

	counts, err := newTestEngine(stores).EnrichAll(ctx)
	if err != nil {
		t.Fatalf("enrich returned error: %v", err)
	}
	if counts.Channels != 0 {
		t.Errorf("channel backfills = %d, want 0", counts.Channels)
	}
}

func TestCategoryBackfill(t *testing.T) {
	stores := testutil.NewStores()
	ctx := context.Background()

	if _, err := stores.Notices.Create(ctx, domain.Notice{
		PatronID:           1021,
		PatronBarcode:      "21234001234567",
		ItemBarcode:        "31234000111222",
		NoticedAt:          day.Add(8 * time.Hour),
		NotificationTypeID: domain.NotificationSecondOverdue,
		DeliveryOptionID:   domain.ChannelVoice,
	}); err != nil {
		t.Fatalf("seeding notice: %v", err)
	}
	// Hold notices are outside the overdue family and must not be copied.
	if _, err := stores.Notices.Create(ctx, domain.Notice{
		PatronID:           1022,
		ItemBarcode:        "31234000333444",
		NoticedAt:          day.Add(8 * time.Hour),
		NotificationTypeID: domain.NotificationHold,
	}); err != nil {
		t.Fatalf("seeding notice: %v", err)
	}
	if _, err := stores.Verifications.Create(ctx, domain.VerificationRecord{
		PatronBarcode: "21234001234567",
		PatronID:      intPtr(1021),
		ItemBarcode:   "31234000111222",
		NoticeDate:    day.Add(9 * time.Hour),
	}); err != nil {
		t.Fatalf("seeding verification: %v", err)
	}
	if _, err := stores.Verifications.Create(ctx, domain.VerificationRecord{
		PatronBarcode: "21234009999999",
		PatronID:      intPtr(1022),
		ItemBarcode:   "31234000333444",
		NoticeDate:    day.Add(9 * time.Hour),
	}); err != nil {
		t.Fatalf("seeding verification: %v", err)
	}

	counts, err := newTestEngine(stores).EnrichAll(ctx)
	if err != nil {
		t.Fatalf("enrich returned error: %v", err)
	}
	if counts.Categories != 1 {
		t.Errorf("category backfills = %d, want 1", counts.Categories)
	}

	for _, rec := range stores.Verifications.Rows() {
		if rec.PatronID != nil && *rec.PatronID == 1021 {
			if rec.NotificationTypeID == nil || *rec.NotificationTypeID != domain.NotificationSecondOverdue {
				t.Errorf("overdue verification not backfilled: %+v", rec)
			}
		}
		if rec.PatronID != nil && *rec.PatronID == 1022 && rec.NotificationTypeID != nil {
			t.Errorf("hold verification should stay unclassified, got type %d", *rec.NotificationTypeID)
		}
	}
}

func TestReferenceBackfill(t *testing.T) {
	stores := testutil.NewStores()
	ctx := context.Background()

	reason := "No answer"
	if _, err := stores.Outcomes.Create(ctx, domain.DeliveryOutcome{
		Phone:         "5035551234",
		SentAt:        day.Add(10 * time.Hour),
		Status:        domain.StatusFailed,
		FailureReason: &reason,
		PatronID:      intPtr(1021),
	}); err != nil {
		t.Fatalf("seeding outcome: %v", err)
	}
	if _, err := stores.Verifications.Create(ctx, domain.VerificationRecord{
		PatronBarcode:      "21234001234567",
		PatronID:           intPtr(1021),
		ItemRecordID:       intPtr(700123),
		HoldRequestID:      intPtr(88321),
		NotificationTypeID: intPtr(domain.NotificationHold),
		NoticeDate:         day.Add(9 * time.Hour),
	}); err != nil {
		t.Fatalf("seeding verification: %v", err)
	}

	counts, err := newTestEngine(stores).EnrichAll(ctx)
	if err != nil {
		t.Fatalf("enrich returned error: %v", err)
	}
	if counts.References != 1 {
		t.Errorf("reference backfills = %d, want 1", counts.References)
	}

	outcome := stores.Outcomes.Rows()[0]
	if outcome.NotificationTypeID == nil || *outcome.NotificationTypeID != domain.NotificationHold {
		t.Errorf("notification type not copied: %+v", outcome)
	}
	if outcome.ItemRecordID == nil || *outcome.ItemRecordID != 700123 {
		t.Errorf("item record id not copied: %+v", outcome)
	}
	if outcome.HoldRequestID == nil || *outcome.HoldRequestID != 88321 {
		t.Errorf("hold request id not copied: %+v", outcome)
	}
}

func TestEnrichAllIsIdempotent(t *testing.T) {
	stores := testutil.NewStores()
	ctx := context.Background()

	if _, err := stores.Submissions.Create(ctx, domain.SubmissionRecord{
		PatronBarcode: "21234001234567",
		Category:      domain.SubmissionCategoryOverdue,
		SubmittedAt:   day.Add(9 * time.Hour),
	}); err != nil {
		t.Fatalf("seeding submission: %v", err)
	}
	if _, err := stores.Preferences.Create(ctx, domain.PatronPreference{
		PatronBarcode:    "21234001234567",
		DeliveryOptionID: domain.ChannelSMS,
		RecordedAt:       day.Add(6 * time.Hour),
	}); err != nil {
		t.Fatalf("seeding preference: %v", err)
	}
	if _, err := stores.Notices.Create(ctx, domain.Notice{
		PatronID:           1021,
		ItemBarcode:        "31234000111222",
		NoticedAt:          day.Add(8 * time.Hour),
		NotificationTypeID: domain.NotificationFirstOverdue,
	}); err != nil {
		t.Fatalf("seeding notice: %v", err)
	}
	if _, err := stores.Verifications.Create(ctx, domain.VerificationRecord{
		PatronBarcode: "21234001234567",
		PatronID:      intPtr(1021),
		ItemBarcode:   "31234000111222",
		ItemRecordID:  intPtr(700123),
		NoticeDate:    day.Add(9 * time.Hour),
	}); err != nil {
		t.Fatalf("seeding verification: %v", err)
	}
	if _, err := stores.Outcomes.Create(ctx, domain.DeliveryOutcome{
		Phone:    "5035551234",
		SentAt:   day.Add(11 * time.Hour),
		Status:   domain.StatusFailed,
		PatronID: intPtr(1021),
	}); err != nil {
		t.Fatalf("seeding outcome: %v", err)
	}

	engine := newTestEngine(stores)

	first, err := engine.EnrichAll(ctx)
	if err != nil {
		t.Fatalf("first run returned error: %v", err)
	}
	if first.Total() == 0 {
		t.Fatalf("first run should change rows, got %+v", first)
	}

	afterFirst := struct {
		subs   []domain.SubmissionRecord
		verifs []domain.VerificationRecord
		outs   []domain.DeliveryOutcome
	}{stores.Submissions.Rows(), stores.Verifications.Rows(), stores.Outcomes.Rows()}

	second, err := engine.EnrichAll(ctx)
	if err != nil {
		t.Fatalf("second run returned error: %v", err)
	}
	if second.Total() != 0 {
		t.Errorf("second run should be a no-op, got %+v", second)
	}

	if !reflect.DeepEqual(afterFirst.subs, stores.Submissions.Rows()) {
		t.Errorf("submission rows changed on second run")
	}
	if !reflect.DeepEqual(afterFirst.verifs, stores.Verifications.Rows()) {
		t.Errorf("verification rows changed on second run")
	}
	if !reflect.DeepEqual(afterFirst.outs, stores.Outcomes.Rows()) {
		t.Errorf("outcome rows changed on second run")
	}
}
