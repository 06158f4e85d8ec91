package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oslri/noticetrack/internal/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned by single-row lookups when no row matches.
// Correlation-level "no match" never surfaces as this error; only direct
// by-id fetches do.
var ErrNotFound = errors.New("record not found")

// NoticeRepository stores creation-log rows.
type NoticeRepository interface {
	Create(ctx context.Context, notice domain.Notice) (domain.Notice, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Notice, error)
	List(ctx context.Context, window domain.DateWindow) ([]domain.Notice, error)
}

// SubmissionRepository stores vendor submission export rows.
type SubmissionRepository interface {
	Create(ctx context.Context, record domain.SubmissionRecord) (domain.SubmissionRecord, error)
	// CandidatesByPatronDay returns all rows for the barcode on the given
	// calendar day, ordered by submitted_at then id so callers match
	// deterministically.
	CandidatesByPatronDay(ctx context.Context, patronBarcode string, day time.Time) ([]domain.SubmissionRecord, error)
	List(ctx context.Context, window domain.DateWindow) ([]domain.SubmissionRecord, error)
	ListMissingChannel(ctx context.Context) ([]domain.SubmissionRecord, error)
	// ApplyChannelBackfill sets delivery_option_id on the given rows, but
	// only where it is still null. Returns the number of rows changed.
	ApplyChannelBackfill(ctx context.Context, assignments []ChannelAssignment) (int64, error)
}

// VerificationRepository stores vendor-corroboration export rows.
type VerificationRepository interface {
	Create(ctx context.Context, record domain.VerificationRecord) (domain.VerificationRecord, error)
	CandidatesByPatronDay(ctx context.Context, patronBarcode string, day time.Time) ([]domain.VerificationRecord, error)
	List(ctx context.Context, window domain.DateWindow) ([]domain.VerificationRecord, error)
	ListMissingCategory(ctx context.Context) ([]domain.VerificationRecord, error)
	// ApplyCategoryBackfill sets notification_type_id on the given rows, but
	// only where it is still null. Returns the number of rows changed.
	ApplyCategoryBackfill(ctx context.Context, assignments []CategoryAssignment) (int64, error)
}

// OutcomeRepository stores vendor delivery-outcome rows (failure-only feed).
type OutcomeRepository interface {
	Create(ctx context.Context, outcome domain.DeliveryOutcome) (domain.DeliveryOutcome, error)
	// ListByPhoneBetween returns outcomes for the phone with sent_at inside
	// [from, to], ordered by sent_at then id.
	ListByPhoneBetween(ctx context.Context, phone string, from, to time.Time) ([]domain.DeliveryOutcome, error)
	ListFailed(ctx context.Context, window domain.DateWindow) ([]domain.DeliveryOutcome, error)
	ListMissingReferences(ctx context.Context) ([]domain.DeliveryOutcome, error)
	// ApplyReferenceBackfill sets the Polaris reference columns on the given
	// rows, each column only where it is still null. Returns the number of
	// rows changed.
	ApplyReferenceBackfill(ctx context.Context, assignments []ReferenceAssignment) (int64, error)
}

// PreferenceRepository stores the patron delivery-preference snapshot.
type PreferenceRepository interface {
	Create(ctx context.Context, pref domain.PatronPreference) (domain.PatronPreference, error)
	ListByBarcodes(ctx context.Context, barcodes []string) ([]domain.PatronPreference, error)
}

// ImportLogRepository records row level issues from feed file loads.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, feed, fileName string, limit, offset int) ([]domain.ImportLogEntry, error)
}

// ChannelAssignment is one computed channel backfill.
type ChannelAssignment struct {
	ID               uuid.UUID
	DeliveryOptionID int
}

// CategoryAssignment is one computed category backfill.
type CategoryAssignment struct {
	ID                 uuid.UUID
	NotificationTypeID int
}

// ReferenceAssignment is one computed failure-report backfill. Nil fields
// are left untouched.
type ReferenceAssignment struct {
	ID                 uuid.UUID
	NotificationTypeID *int
	ItemRecordID       *int
	HoldRequestID      *int
}
