package models

import "time"

// Export formats supported for books.
const (
	ExportFormatPDF      = "pdf"
	ExportFormatDoc      = "doc"
	ExportFormatHTML     = "html"
	ExportFormatMarkdown = "markdown"
)

// Export job states.
const (
	ExportStatusQueued    = "queued"
	ExportStatusRunning   = "running"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// ExportJobRecord tracks a book export handled by the background queue.
type ExportJobRecord struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	JobID     string    `gorm:"type:char(36);index" json:"job_id"`
	Title     string    `gorm:"type:varchar(200);not null" json:"title"`
	Format    string    `gorm:"type:varchar(16);not null" json:"format"`
	Status    string    `gorm:"type:varchar(16);not null;default:'queued'" json:"status"`
	ObjectKey string    `gorm:"type:varchar(255);default:''" json:"object_key,omitempty"`
	URL       string    `gorm:"type:varchar(512);default:''" json:"url,omitempty"`
	Error     string    `gorm:"type:varchar(255);default:''" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsValidExportFormat reports whether format is a supported export format.
func IsValidExportFormat(format string) bool {
	switch format {
	case ExportFormatPDF, ExportFormatDoc, ExportFormatHTML, ExportFormatMarkdown:
		return true
	default:
		return false
	}
}
