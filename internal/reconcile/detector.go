// Package reconcile classifies notices into reconciliation buckets under the
// silent-success model: the vendor only ever reports failures, so a
// verification older than the cutoff with no failure signal is read as a
// successful delivery.
package reconcile

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/oslri/noticetrack/internal/domain"
	"github.com/oslri/noticetrack/internal/repository"
)

// FailedVerification pairs a verification row with the vendor failure that
// matched it.
type FailedVerification struct {
	Verification domain.VerificationRecord `json:"verification"`
	Outcome      domain.DeliveryOutcome    `json:"outcome"`
}

// Truncation reports which buckets hit the cap. Callers should narrow the
// window when a flag is set; the capped list is not a complete answer.
type Truncation struct {
	SubmittedNotVerified bool `json:"submitted_not_verified"`
	PendingVerification  bool `json:"pending_verification"`
	ActuallyFailed       bool `json:"actually_failed"`
}

// Summary is the troubleshooting rollup for a window. Counts cover the full
// window even when the returned buckets are capped. Pending rows are
// excluded from the success-rate denominator so in-flight notices don't skew
// the rate.
type Summary struct {
	TotalVerified     int     `json:"total_verified"`
	Failed            int     `json:"failed"`
	Pending           int     `json:"pending"`
	AssumedSuccessful int     `json:"assumed_successful"`
	SuccessRate       float64 `json:"success_rate"`
}

// MismatchReport is the result of one reconciliation pass. Assumed-successful
// rows appear in no bucket: under the silent-success model success is
// represented by omission.
type MismatchReport struct {
	SubmittedNotVerified []domain.SubmissionRecord   `json:"submitted_not_verified"`
	PendingVerification  []domain.VerificationRecord `json:"pending_verification"`
	ActuallyFailed       []FailedVerification        `json:"actually_failed"`
	Truncated            Truncation                  `json:"truncated"`
	Summary              Summary                     `json:"summary"`
}

// Detector runs reconciliation passes over a date window.
type Detector struct {
	submissions   repository.SubmissionRepository
	verifications repository.VerificationRepository
	outcomes      repository.OutcomeRepository
	policy        domain.WindowPolicy
	now           func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithNow overrides the clock, used by tests to pin the cutoff.
func WithNow(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDetector creates a mismatch detector over the given stores.
func NewDetector(
	submissions repository.SubmissionRepository,
	verifications repository.VerificationRepository,
	outcomes repository.OutcomeRepository,
	policy domain.WindowPolicy,
	opts ...Option,
) *Detector {
	d := &Detector{
		submissions:   submissions,
		verifications: verifications,
		outcomes:      outcomes,
		policy:        policy,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Mismatches classifies every verification in the window and flags
// submissions that never produced a verification. Each call is one bounded
// read-and-compute pass; nothing is stored.
func (d *Detector) Mismatches(ctx context.Context, window domain.DateWindow) (MismatchReport, error) {
	cutoff := d.now().Add(-d.policy.SilentSuccessCutoff)

	verifications, err := d.verifications.List(ctx, window)
	if err != nil {
		return MismatchReport{}, fmt.Errorf("failed to list verifications: %w", err)
	}
	submissions, err := d.submissions.List(ctx, window)
	if err != nil {
		return MismatchReport{}, fmt.Errorf("failed to list submissions: %w", err)
	}
	// Failures for an in-window verification can land up to a post-window
	// beyond the window edge.
	failed, err := d.outcomes.ListFailed(ctx, domain.DateWindow{
		From: window.From.Add(-d.policy.DeliveryPreWindow),
		To:   window.To.Add(d.policy.DeliveryPostWindow),
	})
	if err != nil {
		return MismatchReport{}, fmt.Errorf("failed to list failed outcomes: %w", err)
	}

	report := MismatchReport{}

	// Index verification days per patron so the submission scan is O(1) per
	// row.
	verifiedDays := make(map[string]bool, len(verifications))
	for _, v := range verifications {
		verifiedDays[v.PatronBarcode+"|"+domain.DayKey(v.NoticeDate)] = true
	}

	for _, sub := range submissions {
		if sub.SubmittedAt.After(cutoff) {
			continue // verification may simply not have landed yet
		}
		if hasVerificationWithinSlack(verifiedDays, sub, d.policy.VerificationSlackDays) {
			continue
		}
		if len(report.SubmittedNotVerified) >= d.policy.BucketCap {
			report.Truncated.SubmittedNotVerified = true
			continue
		}
		report.SubmittedNotVerified = append(report.SubmittedNotVerified, sub)
	}

	failedByPhone := make(map[string][]domain.DeliveryOutcome)
	for _, o := range failed {
		failedByPhone[o.Phone] = append(failedByPhone[o.Phone], o)
	}

	for _, v := range verifications {
		outcome, matched := d.matchFailure(failedByPhone, v)
		switch {
		case matched:
			report.Summary.Failed++
			if len(report.ActuallyFailed) >= d.policy.BucketCap {
				report.Truncated.ActuallyFailed = true
				continue
			}
			report.ActuallyFailed = append(report.ActuallyFailed, FailedVerification{
				Verification: v,
				Outcome:      outcome,
			})
		case v.NoticeDate.After(cutoff):
			report.Summary.Pending++
			if len(report.PendingVerification) >= d.policy.BucketCap {
				report.Truncated.PendingVerification = true
				continue
			}
			report.PendingVerification = append(report.PendingVerification, v)
		default:
			// Older than the cutoff with no failure signal: assumed
			// successful, represented by omission.
		}
	}

	report.Summary.TotalVerified = len(verifications)
	report.Summary.AssumedSuccessful = report.Summary.TotalVerified - report.Summary.Failed - report.Summary.Pending
	if report.Summary.AssumedSuccessful < 0 {
		report.Summary.AssumedSuccessful = 0
	}
	report.Summary.SuccessRate = successRate(report.Summary.TotalVerified, report.Summary.Failed, report.Summary.Pending)

	return report, nil
}

// matchFailure finds the earliest failed outcome for the verification's
// phone that lands on the same calendar day or inside the delivery match
// range. List order is already earliest-first, so the first hit wins.
func (d *Detector) matchFailure(failedByPhone map[string][]domain.DeliveryOutcome, v domain.VerificationRecord) (domain.DeliveryOutcome, bool) {
	if v.Phone == "" {
		return domain.DeliveryOutcome{}, false
	}
	from, to := d.policy.DeliveryMatchRange(v.NoticeDate)
	for _, o := range failedByPhone[v.Phone] {
		if domain.SameDay(o.SentAt, v.NoticeDate) {
			return o, true
		}
		if !o.SentAt.Before(from) && !o.SentAt.After(to) {
			return o, true
		}
	}
	return domain.DeliveryOutcome{}, false
}

func hasVerificationWithinSlack(verifiedDays map[string]bool, sub domain.SubmissionRecord, slackDays int) bool {
	day := domain.Day(sub.SubmittedAt)
	for i := 0; i <= slackDays; i++ {
		if verifiedDays[sub.PatronBarcode+"|"+domain.DayKey(day.AddDate(0, 0, i))] {
			return true
		}
	}
	return false
}

// successRate excludes pending rows from the denominator and rounds to two
// decimals.
func successRate(total, failed, pending int) float64 {
	settled := total - pending
	if settled <= 0 {
		return 0
	}
	rate := float64(settled-failed) / float64(settled) * 100
	return math.Round(rate*100) / 100
}
