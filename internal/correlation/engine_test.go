package correlation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oslri/noticetrack/internal/domain"
	"github.com/oslri/noticetrack/internal/testutil"
)

var noticedAt = time.Date(2025, 11, 9, 14, 23, 15, 0, time.UTC)

func newTestEngine(stores *testutil.Stores, registry *Registry) *Engine {
	return NewEngine(
		stores.Submissions,
		stores.Verifications,
		stores.Outcomes,
		domain.DefaultLookups(),
		domain.DefaultWindowPolicy(),
		registry,
	)
}

func voiceNotice() domain.Notice {
	return domain.Notice{
		ID:                 uuid.New(),
		PatronID:           1021,
		PatronBarcode:      "21234001234567",
		Phone:              "5035551234",
		ItemBarcode:        "31234000111222",
		NoticedAt:          noticedAt,
		NotificationTypeID: domain.NotificationHold,
		DeliveryOptionID:   domain.ChannelVoice,
	}
}

func seedSubmission(t *testing.T, stores *testutil.Stores, rec domain.SubmissionRecord) domain.SubmissionRecord {
	t.Helper()
	created, err := stores.Submissions.Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("seeding submission: %v", err)
	}
	return created
}

func TestVerifyNoMatchesIsPending(t *testing.T) {
	stores := testutil.NewStores()
	engine := newTestEngine(stores, nil)

	result, err := engine.Verify(context.Background(), voiceNotice())
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}

	if !result.Created {
		t.Errorf("created should always be true")
	}
	if result.Submitted || result.Verified || result.Delivered {
		t.Errorf("no stage should have matched: %+v", result)
	}
	if result.OverallStatus != domain.StatusPending {
		t.Errorf("status = %q, want %q", result.OverallStatus, domain.StatusPending)
	}
	if len(result.Timeline) != 1 {
		t.Fatalf("timeline length = %d, want 1", len(result.Timeline))
	}
	if result.Timeline[0].Step != domain.StepCreated {
		t.Errorf("timeline step = %q, want created", result.Timeline[0].Step)
	}
}

func TestVerifySubmittedOnlyIsPartial(t *testing.T) {
	stores := testutil.NewStores()
	notice := voiceNotice()
	seedSubmission(t, stores, domain.SubmissionRecord{
		PatronBarcode: notice.PatronBarcode,
		Phone:         notice.Phone,
		Category:      domain.SubmissionCategoryHolds,
		SubmittedAt:   noticedAt.Add(2 * time.Minute),
		SourceFile:    "holds_20251109.txt",
	})

	engine := newTestEngine(stores, nil)
	result, err := engine.Verify(context.Background(), notice)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}

	if !result.Submitted {
		t.Fatalf("expected submission match")
	}
	if result.OverallStatus != domain.StatusPartial {
		t.Errorf("status = %q, want %q", result.OverallStatus, domain.StatusPartial)
	}
	if result.SubmissionFile != "holds_20251109.txt" {
		t.Errorf("submission file = %q", result.SubmissionFile)
	}
	if len(result.Timeline) != 2 {
		t.Errorf("timeline length = %d, want 2", len(result.Timeline))
	}
}

func TestVerifyFullLifecycleSuccess(t *testing.T) {
	stores := testutil.NewStores()
	notice := voiceNotice()
	ctx := context.Background()

	seedSubmission(t, stores, domain.SubmissionRecord{
		PatronBarcode: notice.PatronBarcode,
		Phone:         notice.Phone,
		Category:      domain.SubmissionCategoryHolds,
		SubmittedAt:   noticedAt.Add(2 * time.Minute),
		SourceFile:    "holds_20251109.txt",
	})
	if _, err := stores.Verifications.Create(ctx, domain.VerificationRecord{
		PatronBarcode:    notice.PatronBarcode,
		ItemBarcode:      notice.ItemBarcode,
		NoticeDate:       noticedAt.Add(10 * time.Minute),
		DeliveryOptionID: domain.ChannelVoice,
		SourceFile:       "notices_20251109.csv",
	}); err != nil {
		t.Fatalf("seeding verification: %v", err)
	}
	if _, err := stores.Outcomes.Create(ctx, domain.DeliveryOutcome{
		Phone:            notice.Phone,
		SentAt:           noticedAt.Add(5 * time.Minute),
		DeliveryOptionID: domain.ChannelVoice,
		Status:           domain.StatusDelivered,
	}); err != nil {
		t.Fatalf("seeding outcome: %v", err)
	}

	engine := newTestEngine(stores, nil)
	result, err := engine.Verify(ctx, notice)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}

	if result.OverallStatus != domain.StatusSuccess {
		t.Errorf("status = %q, want %q", result.OverallStatus, domain.StatusSuccess)
	}
	if len(result.Timeline) != 4 {
		t.Fatalf("timeline length = %d, want 4", len(result.Timeline))
	}
	wantSteps := []string{domain.StepCreated, domain.StepSubmitted, domain.StepVerified, domain.StepDelivered}
	for i, step := range wantSteps {
		if result.Timeline[i].Step != step {
			t.Errorf("timeline[%d] = %q, want %q", i, result.Timeline[i].Step, step)
		}
	}
	if result.VerificationFile != "notices_20251109.csv" {
		t.Errorf("verification file = %q", result.VerificationFile)
	}
}

func TestVerifyFailedDelivery(t *testing.T) {
	stores := testutil.NewStores()
	notice := voiceNotice()
	ctx := context.Background()

	seedSubmission(t, stores, domain.SubmissionRecord{
		PatronBarcode: notice.PatronBarcode,
		Phone:         notice.Phone,
		Category:      domain.SubmissionCategoryHolds,
		SubmittedAt:   noticedAt.Add(2 * time.Minute),
		SourceFile:    "holds_20251109.txt",
	})
	reason := "Patron opted out"
	if _, err := stores.Outcomes.Create(ctx, domain.DeliveryOutcome{
		Phone:            notice.Phone,
		SentAt:           noticedAt.Add(5 * time.Minute),
		DeliveryOptionID: domain.ChannelVoice,
		Status:           domain.StatusFailed,
		FailureReason:    &reason,
	}); err != nil {
		t.Fatalf("seeding outcome: %v", err)
	}

	engine := newTestEngine(stores, nil)
	result, err := engine.Verify(ctx, notice)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}

	if result.OverallStatus != domain.StatusFailure {
		t.Errorf("status = %q, want %q", result.OverallStatus, domain.StatusFailure)
	}
	if result.FailureReason != "Patron opted out" {
		t.Errorf("failure reason = %q", result.FailureReason)
	}
}

func TestVerifyCategoryMismatchDoesNotMatchSubmission(t *testing.T) {
	stores := testutil.NewStores()
	notice := voiceNotice() // hold notice
	seedSubmission(t, stores, domain.SubmissionRecord{
		PatronBarcode: notice.PatronBarcode,
		Phone:         notice.Phone,
		Category:      domain.SubmissionCategoryOverdue,
		SubmittedAt:   noticedAt.Add(time.Minute),
		SourceFile:    "overdue_20251109.txt",
	})

	engine := newTestEngine(stores, nil)
	result, err := engine.Verify(context.Background(), notice)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if result.Submitted {
		t.Errorf("overdue submission should not match a hold notice")
	}
}

func TestVerifyUnknownCategoryNeverMatches(t *testing.T) {
	stores := testutil.NewStores()
	notice := voiceNotice()
	notice.NotificationTypeID = 99
	seedSubmission(t, stores, domain.SubmissionRecord{
		PatronBarcode: notice.PatronBarcode,
		Category:      domain.SubmissionCategoryHolds,
		SubmittedAt:   noticedAt.Add(time.Minute),
	})

	engine := newTestEngine(stores, nil)
	result, err := engine.Verify(context.Background(), notice)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if result.Submitted {
		t.Errorf("unknown category should never match")
	}
}

func TestVerifyDeliveryWindowBoundaries(t *testing.T) {
	cases := []struct {
		name      string
		sentAt    time.Time
		wantMatch bool
	}{
		{"two hours before", noticedAt.Add(-2 * time.Hour), true},
		{"just past pre-window", noticedAt.Add(-2*time.Hour - time.Second), false},
		{"24 hours after", noticedAt.Add(24 * time.Hour), true},
		{"just past post-window", noticedAt.Add(24*time.Hour + time.Second), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stores := testutil.NewStores()
			notice := voiceNotice()
			seedSubmission(t, stores, domain.SubmissionRecord{
				PatronBarcode: notice.PatronBarcode,
				Category:      domain.SubmissionCategoryHolds,
				SubmittedAt:   noticedAt,
			})
			if _, err := stores.Outcomes.Create(context.Background(), domain.DeliveryOutcome{
				Phone:  notice.Phone,
				SentAt: tc.sentAt,
				Status: domain.StatusDelivered,
			}); err != nil {
				t.Fatalf("seeding outcome: %v", err)
			}

			engine := newTestEngine(stores, nil)
			result, err := engine.Verify(context.Background(), notice)
			if err != nil {
				t.Fatalf("verify returned error: %v", err)
			}
			if result.Delivered != tc.wantMatch {
				t.Errorf("delivered = %v, want %v", result.Delivered, tc.wantMatch)
			}
		})
	}
}

func TestVerifyTieBreakIsDeterministic(t *testing.T) {
	// Several identical-looking candidates within the window must always
	// resolve to the earliest timestamp, lowest id, regardless of insertion
	// order.
	notice := voiceNotice()

	earliest := domain.SubmissionRecord{
		ID:            uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		PatronBarcode: notice.PatronBarcode,
		Category:      domain.SubmissionCategoryHolds,
		SubmittedAt:   noticedAt.Add(time.Minute),
		SourceFile:    "holds_a.txt",
	}
	sameTimeHigherID := domain.SubmissionRecord{
		ID:            uuid.MustParse("00000000-0000-0000-0000-000000000002"),
		PatronBarcode: notice.PatronBarcode,
		Category:      domain.SubmissionCategoryHolds,
		SubmittedAt:   noticedAt.Add(time.Minute),
		SourceFile:    "holds_b.txt",
	}
	later := domain.SubmissionRecord{
		ID:            uuid.MustParse("00000000-0000-0000-0000-000000000003"),
		PatronBarcode: notice.PatronBarcode,
		Category:      domain.SubmissionCategoryHolds,
		SubmittedAt:   noticedAt.Add(30 * time.Minute),
		SourceFile:    "holds_c.txt",
	}

	orders := [][]domain.SubmissionRecord{
		{earliest, sameTimeHigherID, later},
		{later, sameTimeHigherID, earliest},
		{sameTimeHigherID, later, earliest},
	}

	for i, order := range orders {
		stores := testutil.NewStores()
		for _, rec := range order {
			seedSubmission(t, stores, rec)
		}

		engine := newTestEngine(stores, nil)
		result, err := engine.Verify(context.Background(), notice)
		if err != nil {
			t.Fatalf("order %d: verify returned error: %v", i, err)
		}
		if result.SubmissionFile != "holds_a.txt" {
			t.Errorf("order %d: matched %q, want holds_a.txt", i, result.SubmissionFile)
		}
	}
}

func TestVerifyItemBarcodeFiltersVerification(t *testing.T) {
	stores := testutil.NewStores()
	notice := voiceNotice()
	ctx := context.Background()

	if _, err := stores.Verifications.Create(ctx, domain.VerificationRecord{
		PatronBarcode: notice.PatronBarcode,
		ItemBarcode:   "31234000999999", // different item
		NoticeDate:    noticedAt,
		SourceFile:    "notices.csv",
	}); err != nil {
		t.Fatalf("seeding verification: %v", err)
	}

	engine := newTestEngine(stores, nil)
	result, err := engine.Verify(ctx, notice)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if result.Verified {
		t.Errorf("verification with mismatched item barcode should not match")
	}
}

type stubVerifier struct {
	called  bool
	partial domain.VerificationResult
}

func (s *stubVerifier) Verify(_ context.Context, _ domain.Notice, partial domain.VerificationResult) (domain.VerificationResult, error) {
	s.called = true
	s.partial = partial
	partial.Submitted = true
	partial.Delivered = true
	partial.DeliveryStatus = domain.StatusDelivered
	partial.DeriveStatus()
	return partial, nil
}

func TestVerifyDelegatesToRegisteredChannelVerifier(t *testing.T) {
	stores := testutil.NewStores()
	verifier := &stubVerifier{}
	registry := NewRegistry()
	registry.Register(domain.ChannelEmail, verifier)

	notice := voiceNotice()
	notice.DeliveryOptionID = domain.ChannelEmail

	engine := newTestEngine(stores, registry)
	result, err := engine.Verify(context.Background(), notice)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}

	if !verifier.called {
		t.Fatalf("registered verifier was not invoked")
	}
	if len(verifier.partial.Timeline) != 1 || verifier.partial.Timeline[0].Step != domain.StepCreated {
		t.Errorf("verifier should receive the created-only partial, got %+v", verifier.partial.Timeline)
	}
	if result.OverallStatus != domain.StatusSuccess {
		t.Errorf("status = %q, want %q", result.OverallStatus, domain.StatusSuccess)
	}
}

func TestVerifyNonLegacyChannelWithoutPluginStaysPending(t *testing.T) {
	stores := testutil.NewStores()
	notice := voiceNotice()
	notice.DeliveryOptionID = domain.ChannelEmail
	seedSubmission(t, stores, domain.SubmissionRecord{
		PatronBarcode: notice.PatronBarcode,
		Category:      domain.SubmissionCategoryHolds,
		SubmittedAt:   noticedAt,
	})

	engine := newTestEngine(stores, nil)
	result, err := engine.Verify(context.Background(), notice)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if result.Submitted {
		t.Errorf("generic path should not run for non-legacy channels")
	}
	if result.OverallStatus != domain.StatusPending {
		t.Errorf("status = %q, want %q", result.OverallStatus, domain.StatusPending)
	}
}
