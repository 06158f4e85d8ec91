package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notice is one row of the local creation log: a single queued patron
// notification with the channel it was routed to. Rows are written by the
// creation-log importer and are read-only to the reconciliation core.
type Notice struct {
	ID                 uuid.UUID `json:"id"`
	PatronID           int       `json:"patron_id"`
	PatronBarcode      string    `json:"patron_barcode"`
	Phone              string    `json:"phone"`
	Email              string    `json:"email"`
	ItemBarcode        string    `json:"item_barcode,omitempty"`
	NoticedAt          time.Time `json:"noticed_at"`
	NotificationTypeID int       `json:"notification_type_id"`
	DeliveryOptionID   int       `json:"delivery_option_id"`
	RawStatusCode      string    `json:"raw_status_code,omitempty"`
}

// NewNotice creates a creation-log row with a fresh identifier.
func NewNotice(patronID int, patronBarcode, phone string, noticedAt time.Time, notificationTypeID, deliveryOptionID int) Notice {
	return Notice{
		ID:                 uuid.New(),
		PatronID:           patronID,
		PatronBarcode:      patronBarcode,
		Phone:              phone,
		NoticedAt:          noticedAt,
		NotificationTypeID: notificationTypeID,
		DeliveryOptionID:   deliveryOptionID,
	}
}
