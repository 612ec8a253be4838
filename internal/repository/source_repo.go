package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/samcutley/intelwatch/internal/domain"
)

// SourceRepository handles content source records.
type SourceRepository struct {
	db *gorm.DB
}

// NewSourceRepository creates a new SourceRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *SourceRepository: repository instance bound to db.
func NewSourceRepository(db *gorm.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// GetOrCreate looks a source up by name and creates it when absent, updating
// the stored rules when they changed in configuration.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: source record from configuration; ID assigned on create.
//
// Returns:
//   - *domain.Source: persisted source record.
//   - error: non-nil if the lookup or write fails.
func (r *SourceRepository) GetOrCreate(ctx context.Context, source *domain.Source) (*domain.Source, error) {
	var existing domain.Source
	err := r.db.WithContext(ctx).First(&existing, "name = ?", source.Name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if source.ID == "" {
			source.ID = uuid.New().String()
		}
		if err := r.db.WithContext(ctx).Create(source).Error; err != nil {
			return nil, err
		}
		return source, nil
	}
	if err != nil {
		return nil, err
	}

	existing.BaseURL = source.BaseURL
	existing.Type = source.Type
	existing.IsActive = source.IsActive
	existing.Rules = source.Rules
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// GetByID retrieves a source by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: source ID.
//
// Returns:
//   - *domain.Source: source record if found.
//   - error: non-nil if lookup fails.
func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	var source domain.Source
	if err := r.db.WithContext(ctx).First(&source, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &source, nil
}

// List retrieves all sources, optionally only active ones.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - activeOnly: when true, only sources with the active flag set.
//
// Returns:
//   - []domain.Source: source records ordered by name.
//   - error: non-nil if the query fails.
func (r *SourceRepository) List(ctx context.Context, activeOnly bool) ([]domain.Source, error) {
	var sources []domain.Source
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("name ASC").Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

// TouchCrawled records a successful crawl timestamp for a source.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: source ID.
//   - at: crawl completion time.
//
// Returns:
//   - error: non-nil if the update fails.
func (r *SourceRepository) TouchCrawled(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Source{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_crawled_at": at,
			"updated_at":      time.Now(),
		}).Error
}
