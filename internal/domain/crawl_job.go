package domain

import "time"

// JobStatus represents the status of a crawl job run.
// Values include JobStatusPending, JobStatusRunning, JobStatusCompleted, and JobStatusFailed.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// CrawlJob records one orchestrator run against one source. It is created at
// run start and finalized exactly once at run end.
type CrawlJob struct {
	ID            string     `gorm:"type:text;primaryKey" json:"id"`
	SourceID      string     `gorm:"type:text;not null;index:idx_crawl_jobs_source" json:"source_id"`
	Status        JobStatus  `gorm:"type:text;default:pending" json:"status"`
	PagesVisited  int        `gorm:"default:0" json:"pages_visited"`
	ArticlesFound int        `gorm:"default:0" json:"articles_found"`
	ArticlesNew   int        `gorm:"default:0" json:"articles_new"`
	ErrorMessage  string     `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for CrawlJob.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (CrawlJob) TableName() string {
	return "crawl_jobs"
}

// JobSummary is the caller-facing result of one crawl run.
type JobSummary struct {
	JobID         string        `json:"job_id"`
	SourceName    string        `json:"source_name"`
	PagesVisited  int           `json:"pages_visited"`
	ArticlesFound int           `json:"articles_found"`
	ArticlesNew   int           `json:"articles_new"`
	Duration      time.Duration `json:"duration"`
}
