package model

import "time"

// Document lifecycle statuses. Transitions are monotonic except for an
// explicit reingest, which resets FAILED back to UPLOADED.
const (
	StatusUploaded   = "UPLOADED"
	StatusProcessing = "PROCESSING"
	StatusIndexed    = "INDEXED"
	StatusFailed     = "FAILED"
)

// Document is one uploaded PDF inside a session. Metadata fields stay nil
// until extraction succeeds.
type Document struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  uint      `gorm:"not null;index;uniqueIndex:idx_doc_session_filename" json:"session_id"`
	Filename   string    `gorm:"size:255;not null;uniqueIndex:idx_doc_session_filename" json:"filename"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`

	Title     *string `gorm:"type:text" json:"title"`
	Abstract  *string `gorm:"type:text" json:"abstract"`
	PageCount *int    `json:"page_count"`

	Status                string     `gorm:"size:20;not null;default:UPLOADED;index" json:"status"`
	ProcessingStartedAt   *time.Time `json:"processing_started_at"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at"`
	ErrorMessage          *string    `gorm:"type:text" json:"error_message"`
}
