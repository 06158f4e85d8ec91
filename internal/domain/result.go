package domain

import "time"

// OverallStatus is the derived lifecycle status of a notice.
type OverallStatus string

const (
	StatusPending OverallStatus = "pending"
	StatusPartial OverallStatus = "partial"
	StatusSuccess OverallStatus = "success"
	StatusFailure OverallStatus = "failed"
)

// Timeline step names, in lifecycle order.
const (
	StepCreated   = "created"
	StepSubmitted = "submitted"
	StepVerified  = "verified"
	StepDelivered = "delivered"
)

// Timeline source collections.
const (
	SourceNotices       = "notices"
	SourceSubmissions   = "submission_records"
	SourceVerifications = "verification_records"
	SourceOutcomes      = "delivery_outcomes"
)

// TimelineEvent is one discrete lifecycle event in a verification timeline.
type TimelineEvent struct {
	Step      string         `json:"step"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Details   map[string]any `json:"details,omitempty"`
}

// VerificationResult is the projection answering "what happened to this
// notice?". It is recomputed from the record stores on every query and never
// persisted. Created is true for any notice handed to the engine; Delivered
// false means "no outcome row found in window", which is absence of evidence,
// not a failure signal.
type VerificationResult struct {
	Created   bool `json:"created"`
	Submitted bool `json:"submitted"`
	Verified  bool `json:"verified"`
	Delivered bool `json:"delivered"`

	OverallStatus OverallStatus `json:"overall_status"`

	CreatedAt   *time.Time `json:"created_at,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	DeliveryStatus string `json:"delivery_status,omitempty"`
	FailureReason  string `json:"failure_reason,omitempty"`

	SubmissionFile   string `json:"submission_file,omitempty"`
	VerificationFile string `json:"verification_file,omitempty"`

	Timeline []TimelineEvent `json:"timeline"`
}

// AppendEvent adds one event to the timeline. Events are kept in append
// order; the timeline is never reordered or deduplicated.
func (r *VerificationResult) AppendEvent(step string, ts time.Time, source string, details map[string]any) {
	r.Timeline = append(r.Timeline, TimelineEvent{
		Step:      step,
		Timestamp: ts,
		Source:    source,
		Details:   details,
	})
}

// DeriveStatus computes the overall status from the match pattern.
func (r *VerificationResult) DeriveStatus() {
	switch {
	case !r.Submitted:
		r.OverallStatus = StatusPending
	case !r.Delivered:
		r.OverallStatus = StatusPartial
	case r.DeliveryStatus == StatusFailed:
		r.OverallStatus = StatusFailure
	default:
		r.OverallStatus = StatusSuccess
	}
}
