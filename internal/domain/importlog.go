package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportLogEntry captures row level issues that occur while loading a feed
// file. Bad rows are skipped and logged, never inserted.
type ImportLogEntry struct {
	ID           uuid.UUID `json:"id"`
	Feed         string    `json:"feed"`
	FileName     string    `json:"file_name"`
	RowNumber    *int      `json:"row_number,omitempty"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}
