package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/samcutley/intelwatch/internal/domain"
)

// ArticleRepository is the single write path for work units. All status
// transitions go through it; no other component mutates article state.
type ArticleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates a new ArticleRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *ArticleRepository: repository instance bound to db.
func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// GetByURL retrieves an article by its canonical URL.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - url: canonical article URL.
//
// Returns:
//   - *domain.Article: article record if found, nil when no record exists.
//   - error: non-nil if the lookup fails.
func (r *ArticleRepository) GetByURL(ctx context.Context, url string) (*domain.Article, error) {
	var article domain.Article
	err := r.db.WithContext(ctx).First(&article, "url = ?", url).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// GetByID retrieves an article by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: article ID.
//
// Returns:
//   - *domain.Article: article record if found.
//   - error: non-nil if lookup fails.
func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	var article domain.Article
	if err := r.db.WithContext(ctx).First(&article, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// Upsert inserts a new article or overwrites the mutable content fields of an
// existing one, keyed by canonical URL. The uniqueness invariant is enforced
// here: a second fetch of the same URL never creates a duplicate row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - article: article record; ID is assigned when the row is created.
//
// Returns:
//   - bool: true when a new row was created.
//   - error: non-nil if the upsert fails.
func (r *ArticleRepository) Upsert(ctx context.Context, article *domain.Article) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Article
		err := tx.First(&existing, "url = ?", article.URL).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if article.ID == "" {
				article.ID = uuid.New().String()
			}
			created = true
			return tx.Create(article).Error
		}
		if err != nil {
			return err
		}

		article.ID = existing.ID
		// The attempt counter survives content updates; it only moves on
		// claim or manual reset.
		article.AnalysisAttempts = existing.AnalysisAttempts
		article.CreatedAt = existing.CreatedAt
		return tx.Model(&domain.Article{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
			"title":           article.Title,
			"summary":         article.Summary,
			"content":         article.Content,
			"content_hash":    article.ContentHash,
			"published_at":    article.PublishedAt,
			"analysis_status": article.AnalysisStatus,
			"updated_at":      time.Now(),
		}).Error
	})
	return created, err
}

// ClaimBatch atomically selects and claims up to limit pending articles,
// oldest first. The status flip to processing and the attempt increment happen
// in the same transaction as the selection, so concurrent pollers never
// receive overlapping batches.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of articles to claim.
//   - maxAttempts: attempt ceiling; articles at or above it are excluded.
//
// Returns:
//   - []domain.Article: claimed articles, already in processing state.
//   - error: non-nil if the claim transaction fails.
func (r *ArticleRepository) ClaimBatch(ctx context.Context, limit, maxAttempts int) ([]domain.Article, error) {
	var claimed []domain.Article

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.
			Where("analysis_status = ? AND analysis_attempts < ?", domain.StatusPending, maxAttempts).
			Order("created_at ASC").
			Limit(limit)
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var candidates []domain.Article
		if err := query.Find(&candidates).Error; err != nil {
			return err
		}

		for i := range candidates {
			// Guarded per-row flip: RowsAffected==0 means another poller won.
			res := tx.Model(&domain.Article{}).
				Where("id = ? AND analysis_status = ?", candidates[i].ID, domain.StatusPending).
				Updates(map[string]interface{}{
					"analysis_status":   domain.StatusProcessing,
					"analysis_attempts": gorm.Expr("analysis_attempts + 1"),
					"updated_at":        time.Now(),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				candidates[i].AnalysisStatus = domain.StatusProcessing
				candidates[i].AnalysisAttempts++
				claimed = append(claimed, candidates[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkCompleted transitions a claimed article from processing to completed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: article ID.
//
// Returns:
//   - error: non-nil if the article was not in processing state.
func (r *ArticleRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.transition(ctx, id, domain.StatusProcessing, domain.StatusCompleted)
}

// MarkFailed transitions a claimed article from processing to failed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: article ID.
//
// Returns:
//   - error: non-nil if the article was not in processing state.
func (r *ArticleRepository) MarkFailed(ctx context.Context, id string) error {
	return r.transition(ctx, id, domain.StatusProcessing, domain.StatusFailed)
}

// Release returns a claimed article to pending without touching its attempt
// counter. Used when analysis is declined rather than failed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: article ID.
//
// Returns:
//   - error: non-nil if the article was not in processing state.
func (r *ArticleRepository) Release(ctx context.Context, id string) error {
	return r.transition(ctx, id, domain.StatusProcessing, domain.StatusPending)
}

// ResetForRetry moves a terminally failed article back to pending with a zero
// attempt counter. Manual intervention path only.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: article ID.
//
// Returns:
//   - error: non-nil if the update fails or the article is not failed.
func (r *ArticleRepository) ResetForRetry(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&domain.Article{}).
		Where("id = ? AND analysis_status = ?", id, domain.StatusFailed).
		Updates(map[string]interface{}{
			"analysis_status":   domain.StatusPending,
			"analysis_attempts": 0,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("article %s is not in failed state", id)
	}
	return nil
}

func (r *ArticleRepository) transition(ctx context.Context, id string, from, to domain.AnalysisStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Article{}).
		Where("id = ? AND analysis_status = ?", id, from).
		Updates(map[string]interface{}{
			"analysis_status": to,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("article %s: invalid transition %s -> %s", id, from, to)
	}
	return nil
}

// ListByStatus retrieves articles by status with pagination, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: analysis status to filter by; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
//
// Returns:
//   - []domain.Article: matching article records.
//   - error: non-nil if the query fails.
func (r *ArticleRepository) ListByStatus(ctx context.Context, status domain.AnalysisStatus, limit, offset int) ([]domain.Article, error) {
	var articles []domain.Article
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("analysis_status = ?", status)
	}
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// ListBySource retrieves articles for one source with pagination, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sourceID: source ID to filter by.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
//
// Returns:
//   - []domain.Article: matching article records.
//   - error: non-nil if the query fails.
func (r *ArticleRepository) ListBySource(ctx context.Context, sourceID string, limit, offset int) ([]domain.Article, error) {
	var articles []domain.Article
	if err := r.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// CountByStatus counts articles per analysis status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//
// Returns:
//   - map[domain.AnalysisStatus]int64: count per status.
//   - error: non-nil if the query fails.
func (r *ArticleRepository) CountByStatus(ctx context.Context) (map[domain.AnalysisStatus]int64, error) {
	type row struct {
		AnalysisStatus domain.AnalysisStatus
		Total          int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&domain.Article{}).
		Select("analysis_status, count(*) as total").
		Group("analysis_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[domain.AnalysisStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.AnalysisStatus] = r.Total
	}
	return counts, nil
}

// Search performs a substring match over title, summary, and content.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - term: search term, matched case-insensitively.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
//
// Returns:
//   - []domain.Article: matching article records, newest first.
//   - error: non-nil if the query fails.
func (r *ArticleRepository) Search(ctx context.Context, term string, limit, offset int) ([]domain.Article, error) {
	pattern := "%" + term + "%"
	var articles []domain.Article
	if err := r.db.WithContext(ctx).
		Where("title LIKE ? OR summary LIKE ? OR content LIKE ?", pattern, pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}
