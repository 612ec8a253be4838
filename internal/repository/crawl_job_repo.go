package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/samcutley/intelwatch/internal/domain"
)

// CrawlJobRepository handles crawl job run records.
type CrawlJobRepository struct {
	db *gorm.DB
}

// NewCrawlJobRepository creates a new CrawlJobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *CrawlJobRepository: repository instance bound to db.
func NewCrawlJobRepository(db *gorm.DB) *CrawlJobRepository {
	return &CrawlJobRepository{db: db}
}

// Start creates a job record for a source and marks it running.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sourceID: source the run belongs to.
//
// Returns:
//   - *domain.CrawlJob: created job record in running state.
//   - error: non-nil if the insert fails.
func (r *CrawlJobRepository) Start(ctx context.Context, sourceID string) (*domain.CrawlJob, error) {
	now := time.Now()
	job := &domain.CrawlJob{
		ID:        uuid.New().String(),
		SourceID:  sourceID,
		Status:    domain.JobStatusRunning,
		StartedAt: &now,
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// Complete finalizes a job as completed with its aggregate counts.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
//   - pagesVisited: listing pages visited this run.
//   - articlesFound: candidate units discovered.
//   - articlesNew: units newly created.
//
// Returns:
//   - error: non-nil if the update fails.
func (r *CrawlJobRepository) Complete(ctx context.Context, id string, pagesVisited, articlesFound, articlesNew int) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.CrawlJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         domain.JobStatusCompleted,
			"pages_visited":  pagesVisited,
			"articles_found": articlesFound,
			"articles_new":   articlesNew,
			"completed_at":   now,
			"updated_at":     now,
		}).Error
}

// Fail finalizes a job as failed with an error summary.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
//   - message: error detail recorded on the job.
//
// Returns:
//   - error: non-nil if the update fails.
func (r *CrawlJobRepository) Fail(ctx context.Context, id string, message string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.CrawlJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        domain.JobStatusFailed,
			"error_message": message,
			"completed_at":  now,
			"updated_at":    now,
		}).Error
}

// GetByID retrieves a job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
//
// Returns:
//   - *domain.CrawlJob: job record if found.
//   - error: non-nil if lookup fails.
func (r *CrawlJobRepository) GetByID(ctx context.Context, id string) (*domain.CrawlJob, error) {
	var job domain.CrawlJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// List retrieves jobs with pagination, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sourceID: source filter; empty means all sources.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
//
// Returns:
//   - []domain.CrawlJob: matching job records.
//   - error: non-nil if the query fails.
func (r *CrawlJobRepository) List(ctx context.Context, sourceID string, limit, offset int) ([]domain.CrawlJob, error) {
	var jobs []domain.CrawlJob
	query := r.db.WithContext(ctx)
	if sourceID != "" {
		query = query.Where("source_id = ?", sourceID)
	}
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
