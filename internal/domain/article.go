package domain

import "time"

// AnalysisStatus represents the extraction lifecycle state of an article.
// Values include StatusPending, StatusProcessing, StatusCompleted, and StatusFailed.
type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// Article is one ingested work unit, keyed by canonical URL. A second fetch of
// the same URL updates the existing record; it never creates a duplicate.
type Article struct {
	ID               string         `gorm:"type:text;primaryKey" json:"id"`
	SourceID         string         `gorm:"type:text;not null;index:idx_articles_source" json:"source_id"`
	URL              string         `gorm:"type:text;not null;uniqueIndex:idx_articles_url" json:"url"`
	Title            string         `gorm:"type:text" json:"title"`
	Summary          string         `gorm:"type:text" json:"summary"`
	Content          string         `gorm:"type:text" json:"content,omitempty"`
	ContentHash      string         `gorm:"type:text;index:idx_articles_hash" json:"content_hash"`
	PublishedAt      *time.Time     `json:"published_at,omitempty"`
	AnalysisStatus   AnalysisStatus `gorm:"type:text;index:idx_articles_status;default:pending" json:"analysis_status"`
	AnalysisAttempts int            `gorm:"default:0" json:"analysis_attempts"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Article.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Article) TableName() string {
	return "articles"
}
