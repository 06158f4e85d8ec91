package domain

import (
	"time"

	"github.com/google/uuid"
)

// Submission categories as they appear in the vendor submission export.
const (
	SubmissionCategoryHolds   = "holds"
	SubmissionCategoryOverdue = "overdue"
	SubmissionCategoryRenew   = "renew"
	SubmissionCategoryUnknown = "unknown"
)

// SubmissionRecord is one line of a vendor submission export: a notice as it
// was handed to the delivery vendor. DeliveryOptionID is absent from the
// export format and filled in later by enrichment.
type SubmissionRecord struct {
	ID               uuid.UUID `json:"id"`
	PatronBarcode    string    `json:"patron_barcode"`
	Phone            string    `json:"phone"`
	Category         string    `json:"category"`
	SubmittedAt      time.Time `json:"submitted_at"`
	DeliveryOptionID *int      `json:"delivery_option_id,omitempty"`
	SourceFile       string    `json:"source_file"`
}

// VerificationRecord is one line of the vendor-corroboration export, the
// baseline proving a notice was hand-off-ready. NotificationTypeID is null on
// overdue-export rows and recovered by enrichment.
type VerificationRecord struct {
	ID                 uuid.UUID `json:"id"`
	PatronBarcode      string    `json:"patron_barcode"`
	PatronID           *int      `json:"patron_id,omitempty"`
	ItemBarcode        string    `json:"item_barcode,omitempty"`
	ItemRecordID       *int      `json:"item_record_id,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	NoticeDate         time.Time `json:"notice_date"`
	DeliveryOptionID   int       `json:"delivery_option_id"`
	NotificationTypeID *int      `json:"notification_type_id,omitempty"`
	HoldRequestID      *int      `json:"hold_request_id,omitempty"`
	SourceFile         string    `json:"source_file"`
}

// Delivery status strings reported by the vendor. The real feed only ever
// carries failures; StatusDelivered exists for synthesized fixtures.
const (
	StatusFailed    = "Failed"
	StatusDelivered = "Delivered"
)

// DeliveryOutcome is one vendor-reported outcome row. The feed is
// failure-only: absence of a row is the only success signal. The Polaris
// reference fields (patron, type, item, hold) arrive null from the vendor's
// failure report and are recovered by enrichment.
type DeliveryOutcome struct {
	ID                 uuid.UUID `json:"id"`
	Phone              string    `json:"phone"`
	SentAt             time.Time `json:"sent_at"`
	DeliveryOptionID   int       `json:"delivery_option_id"`
	Status             string    `json:"status"`
	FailureReason      *string   `json:"failure_reason,omitempty"`
	PatronID           *int      `json:"patron_id,omitempty"`
	NotificationTypeID *int      `json:"notification_type_id,omitempty"`
	ItemRecordID       *int      `json:"item_record_id,omitempty"`
	HoldRequestID      *int      `json:"hold_request_id,omitempty"`
}

// Failed reports whether the vendor marked this outcome as a failure.
func (o DeliveryOutcome) Failed() bool {
	return o.Status == StatusFailed
}

// PatronPreference is one row of the daily patron delivery-preference
// snapshot, the join source for the channel backfill rule.
type PatronPreference struct {
	ID               uuid.UUID `json:"id"`
	PatronBarcode    string    `json:"patron_barcode"`
	DeliveryOptionID int       `json:"delivery_option_id"`
	RecordedAt       time.Time `json:"recorded_at"`
}
