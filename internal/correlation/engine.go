package correlation

import (
	"context"
	"fmt"

	"github.com/oslri/noticetrack/internal/domain"
	"github.com/oslri/noticetrack/internal/repository"
)

// Engine answers "what happened to this notice?" by correlating the four
// record stores into a VerificationResult. Each call is a bounded
// read-and-compute pass with no side effects, so engines are safe for
// concurrent use.
type Engine struct {
	submissions   repository.SubmissionRepository
	verifications repository.VerificationRepository
	outcomes      repository.OutcomeRepository
	lookups       domain.Lookups
	policy        domain.WindowPolicy
	registry      *Registry
}

// NewEngine creates a correlation engine over the given stores.
func NewEngine(
	submissions repository.SubmissionRepository,
	verifications repository.VerificationRepository,
	outcomes repository.OutcomeRepository,
	lookups domain.Lookups,
	policy domain.WindowPolicy,
	registry *Registry,
) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Engine{
		submissions:   submissions,
		verifications: verifications,
		outcomes:      outcomes,
		lookups:       lookups,
		policy:        policy,
		registry:      registry,
	}
}

// Verify builds the lifecycle projection for one notice. A notice's mere
// existence proves creation, so Created is always true. No-match at any
// later step is recorded as false on the result, never as an error; errors
// are reserved for the stores themselves failing.
func (e *Engine) Verify(ctx context.Context, notice domain.Notice) (domain.VerificationResult, error) {
	result := domain.VerificationResult{Created: true}
	createdAt := notice.NoticedAt
	result.CreatedAt = &createdAt
	result.AppendEvent(domain.StepCreated, notice.NoticedAt, domain.SourceNotices, map[string]any{
		"notification_type": e.lookups.CategoryName(notice.NotificationTypeID),
		"delivery_channel":  e.lookups.ChannelName(notice.DeliveryOptionID),
	})

	if verifier, ok := e.registry.Lookup(notice.DeliveryOptionID); ok {
		return verifier.Verify(ctx, notice, result)
	}

	// The generic path only understands the two legacy channels. A notice on
	// any other channel without a registered verifier stays a created-only
	// projection.
	if notice.DeliveryOptionID != domain.ChannelVoice && notice.DeliveryOptionID != domain.ChannelSMS {
		result.DeriveStatus()
		return result, nil
	}

	if err := e.matchSubmission(ctx, notice, &result); err != nil {
		return domain.VerificationResult{}, err
	}
	if err := e.matchVerification(ctx, notice, &result); err != nil {
		return domain.VerificationResult{}, err
	}
	if err := e.matchDelivery(ctx, notice, &result); err != nil {
		return domain.VerificationResult{}, err
	}

	result.DeriveStatus()
	return result, nil
}

func (e *Engine) matchSubmission(ctx context.Context, notice domain.Notice, result *domain.VerificationResult) error {
	category := domain.SubmissionCategoryFor(notice.NotificationTypeID)
	if category == domain.SubmissionCategoryUnknown {
		return nil
	}

	candidates, err := e.submissions.CandidatesByPatronDay(ctx, notice.PatronBarcode, notice.NoticedAt)
	if err != nil {
		return fmt.Errorf("failed to query submission candidates: %w", err)
	}

	var match *domain.SubmissionRecord
	for i := range candidates {
		if candidates[i].Category != category {
			continue
		}
		if match == nil || earlierSubmission(candidates[i], *match) {
			match = &candidates[i]
		}
	}
	if match == nil {
		return nil
	}

	result.Submitted = true
	submittedAt := match.SubmittedAt
	result.SubmittedAt = &submittedAt
	result.SubmissionFile = match.SourceFile
	result.AppendEvent(domain.StepSubmitted, match.SubmittedAt, domain.SourceSubmissions, map[string]any{
		"category":    match.Category,
		"source_file": match.SourceFile,
	})
	return nil
}

func (e *Engine) matchVerification(ctx context.Context, notice domain.Notice, result *domain.VerificationResult) error {
	candidates, err := e.verifications.CandidatesByPatronDay(ctx, notice.PatronBarcode, notice.NoticedAt)
	if err != nil {
		return fmt.Errorf("failed to query verification candidates: %w", err)
	}

	var match *domain.VerificationRecord
	for i := range candidates {
		if notice.ItemBarcode != "" && candidates[i].ItemBarcode != notice.ItemBarcode {
			continue
		}
		if match == nil || earlierVerification(candidates[i], *match) {
			match = &candidates[i]
		}
	}
	if match == nil {
		return nil
	}

	result.Verified = true
	verifiedAt := match.NoticeDate
	result.VerifiedAt = &verifiedAt
	result.VerificationFile = match.SourceFile
	result.AppendEvent(domain.StepVerified, match.NoticeDate, domain.SourceVerifications, map[string]any{
		"item_barcode": match.ItemBarcode,
		"source_file":  match.SourceFile,
	})
	return nil
}

func (e *Engine) matchDelivery(ctx context.Context, notice domain.Notice, result *domain.VerificationResult) error {
	from, to := e.policy.DeliveryMatchRange(notice.NoticedAt)

	outcomes, err := e.outcomes.ListByPhoneBetween(ctx, notice.Phone, from, to)
	if err != nil {
		return fmt.Errorf("failed to query delivery outcomes: %w", err)
	}

	var match *domain.DeliveryOutcome
	for i := range outcomes {
		if match == nil || earlierOutcome(outcomes[i], *match) {
			match = &outcomes[i]
		}
	}
	if match == nil {
		return nil
	}

	result.Delivered = true
	deliveredAt := match.SentAt
	result.DeliveredAt = &deliveredAt
	result.DeliveryStatus = match.Status
	if match.FailureReason != nil {
		result.FailureReason = *match.FailureReason
	}
	result.AppendEvent(domain.StepDelivered, match.SentAt, domain.SourceOutcomes, map[string]any{
		"status":         match.Status,
		"failure_reason": result.FailureReason,
	})
	return nil
}

// Tie-break for ambiguous matches: earliest timestamp wins, then the lowest
// id. The stores already order candidates this way; applying it again here
// keeps the engine deterministic regardless of store implementation.

func earlierSubmission(a, b domain.SubmissionRecord) bool {
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.ID.String() < b.ID.String()
}

func earlierVerification(a, b domain.VerificationRecord) bool {
	if !a.NoticeDate.Equal(b.NoticeDate) {
		return a.NoticeDate.Before(b.NoticeDate)
	}
	return a.ID.String() < b.ID.String()
}

func earlierOutcome(a, b domain.DeliveryOutcome) bool {
	if !a.SentAt.Equal(b.SentAt) {
		return a.SentAt.Before(b.SentAt)
	}
	return a.ID.String() < b.ID.String()
}
