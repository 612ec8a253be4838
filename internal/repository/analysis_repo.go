package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/samcutley/intelwatch/internal/domain"
)

// DerivedRecords groups the typed sub-entities decomposed from one extraction
// result. All slices may be empty.
type DerivedRecords struct {
	Indicators      []domain.Indicator
	CVEs            []domain.CVEReference
	Actors          []domain.ThreatActor
	MalwareFamilies []domain.MalwareFamily
	Industries      []domain.IndustryRef
	Regions         []domain.RegionRef
}

// AnalysisRepository persists extraction results and their derived records.
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new AnalysisRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *AnalysisRepository: repository instance bound to db.
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// SaveResult writes the parent result row and every derived record in a single
// transaction. If any insert fails, nothing becomes visible.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - result: parent analysis result row.
//   - derived: decomposed sub-entities to batch-insert.
//
// Returns:
//   - error: non-nil if the transaction fails; no partial writes remain.
func (r *AnalysisRepository) SaveResult(ctx context.Context, result *domain.AnalysisResult, derived *DerivedRecords) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(result).Error; err != nil {
			return err
		}
		if len(derived.Indicators) > 0 {
			if err := tx.CreateInBatches(derived.Indicators, 100).Error; err != nil {
				return err
			}
		}
		if len(derived.CVEs) > 0 {
			if err := tx.CreateInBatches(derived.CVEs, 100).Error; err != nil {
				return err
			}
		}
		if len(derived.Actors) > 0 {
			if err := tx.CreateInBatches(derived.Actors, 100).Error; err != nil {
				return err
			}
		}
		if len(derived.MalwareFamilies) > 0 {
			if err := tx.CreateInBatches(derived.MalwareFamilies, 100).Error; err != nil {
				return err
			}
		}
		if len(derived.Industries) > 0 {
			if err := tx.CreateInBatches(derived.Industries, 100).Error; err != nil {
				return err
			}
		}
		if len(derived.Regions) > 0 {
			if err := tx.CreateInBatches(derived.Regions, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LatestByArticle retrieves the most recent result for an article. The latest
// row is authoritative for display.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - articleID: parent article ID.
//
// Returns:
//   - *domain.AnalysisResult: latest result, nil when none exists.
//   - error: non-nil if the query fails.
func (r *AnalysisRepository) LatestByArticle(ctx context.Context, articleID string) (*domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	err := r.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("created_at DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListIndicators retrieves indicators with optional type filter, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - indicatorType: type filter; empty means all types.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
//
// Returns:
//   - []domain.Indicator: matching indicator records.
//   - error: non-nil if the query fails.
func (r *AnalysisRepository) ListIndicators(ctx context.Context, indicatorType domain.IndicatorType, limit, offset int) ([]domain.Indicator, error) {
	var indicators []domain.Indicator
	query := r.db.WithContext(ctx)
	if indicatorType != "" {
		query = query.Where("type = ?", indicatorType)
	}
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&indicators).Error; err != nil {
		return nil, err
	}
	return indicators, nil
}

// DerivedByArticle loads every derived record group for one article.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - articleID: parent article ID.
//
// Returns:
//   - *DerivedRecords: derived rows grouped by kind.
//   - error: non-nil if any query fails.
func (r *AnalysisRepository) DerivedByArticle(ctx context.Context, articleID string) (*DerivedRecords, error) {
	derived := &DerivedRecords{}
	db := r.db.WithContext(ctx)
	if err := db.Where("article_id = ?", articleID).Find(&derived.Indicators).Error; err != nil {
		return nil, err
	}
	if err := db.Where("article_id = ?", articleID).Find(&derived.CVEs).Error; err != nil {
		return nil, err
	}
	if err := db.Where("article_id = ?", articleID).Find(&derived.Actors).Error; err != nil {
		return nil, err
	}
	if err := db.Where("article_id = ?", articleID).Find(&derived.MalwareFamilies).Error; err != nil {
		return nil, err
	}
	if err := db.Where("article_id = ?", articleID).Find(&derived.Industries).Error; err != nil {
		return nil, err
	}
	if err := db.Where("article_id = ?", articleID).Find(&derived.Regions).Error; err != nil {
		return nil, err
	}
	return derived, nil
}

// CountIndicatorsByType counts indicators grouped by type.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//
// Returns:
//   - map[domain.IndicatorType]int64: count per indicator type.
//   - error: non-nil if the query fails.
func (r *AnalysisRepository) CountIndicatorsByType(ctx context.Context) (map[domain.IndicatorType]int64, error) {
	type row struct {
		Type  domain.IndicatorType
		Total int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&domain.Indicator{}).
		Select("type, count(*) as total").
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[domain.IndicatorType]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Type] = rw.Total
	}
	return counts, nil
}
