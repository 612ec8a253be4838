package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/samcutley/intelwatch/internal/domain"
)

// newTestDB opens a private in-memory database migrated to the current schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory store.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return db
}

func seedArticle(t *testing.T, repo *ArticleRepository, url string, status domain.AnalysisStatus, attempts int) *domain.Article {
	t.Helper()

	article := &domain.Article{
		ID:               uuid.New().String(),
		SourceID:         "src-1",
		URL:              url,
		Title:            "seed",
		Content:          "seed content",
		ContentHash:      "seedhash",
		AnalysisStatus:   status,
		AnalysisAttempts: attempts,
	}
	require.NoError(t, repo.db.Create(article).Error)
	return article
}

func TestArticleRepositoryUpsert(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))
	ctx := context.Background()

	article := &domain.Article{
		SourceID:       "src-1",
		URL:            "https://example.com/a/1",
		Title:          "First title",
		Content:        "body v1",
		ContentHash:    "hash-v1",
		AnalysisStatus: domain.StatusPending,
	}
	created, err := repo.Upsert(ctx, article)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, article.ID)

	// Simulate a claim so the preserved attempt counter is observable.
	claimed, err := repo.ClaimBatch(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, repo.MarkCompleted(ctx, article.ID))

	update := &domain.Article{
		SourceID:       "src-1",
		URL:            "https://example.com/a/1",
		Title:          "Updated title",
		Content:        "body v2",
		ContentHash:    "hash-v2",
		AnalysisStatus: domain.StatusPending,
	}
	created, err = repo.Upsert(ctx, update)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, article.ID, update.ID, "upsert must reuse the existing row")

	stored, err := repo.GetByURL(ctx, article.URL)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Updated title", stored.Title)
	assert.Equal(t, "hash-v2", stored.ContentHash)
	assert.Equal(t, domain.StatusPending, stored.AnalysisStatus)
	assert.Equal(t, 1, stored.AnalysisAttempts, "attempt counter survives content updates")

	var count int64
	require.NoError(t, repo.db.Model(&domain.Article{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "same URL must never create a second row")
}

func TestArticleRepositoryGetByURLNotFound(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))

	article, err := repo.GetByURL(context.Background(), "https://example.com/none")
	require.NoError(t, err)
	assert.Nil(t, article)
}

func TestArticleRepositoryClaimBatch(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))
	ctx := context.Background()

	a1 := seedArticle(t, repo, "https://example.com/1", domain.StatusPending, 0)
	a2 := seedArticle(t, repo, "https://example.com/2", domain.StatusPending, 1)
	seedArticle(t, repo, "https://example.com/3", domain.StatusCompleted, 1)
	seedArticle(t, repo, "https://example.com/4", domain.StatusPending, 3) // at ceiling
	seedArticle(t, repo, "https://example.com/5", domain.StatusFailed, 3)

	claimed, err := repo.ClaimBatch(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	ids := map[string]bool{claimed[0].ID: true, claimed[1].ID: true}
	assert.True(t, ids[a1.ID])
	assert.True(t, ids[a2.ID])
	for _, c := range claimed {
		assert.Equal(t, domain.StatusProcessing, c.AnalysisStatus)
	}

	stored, err := repo.GetByID(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, stored.AnalysisStatus)
	assert.Equal(t, 1, stored.AnalysisAttempts, "claim increments the attempt counter")

	// Nothing claimable remains.
	again, err := repo.ClaimBatch(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestArticleRepositoryClaimExclusivity(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		seedArticle(t, repo, "https://example.com/x/"+uuid.New().String(), domain.StatusPending, 0)
	}

	first, err := repo.ClaimBatch(ctx, 4, 3)
	require.NoError(t, err)
	second, err := repo.ClaimBatch(ctx, 4, 3)
	require.NoError(t, err)

	assert.Len(t, first, 4)
	assert.Len(t, second, 2)

	seen := map[string]bool{}
	for _, a := range append(first, second...) {
		assert.False(t, seen[a.ID], "article %s claimed twice", a.ID)
		seen[a.ID] = true
	}
}

func TestArticleRepositoryClaimOrderIsOldestFirst(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))
	ctx := context.Background()

	oldest := seedArticle(t, repo, "https://example.com/old", domain.StatusPending, 0)
	require.NoError(t, repo.db.Model(oldest).Update("created_at", "2020-01-01 00:00:00").Error)
	seedArticle(t, repo, "https://example.com/new", domain.StatusPending, 0)

	claimed, err := repo.ClaimBatch(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, oldest.ID, claimed[0].ID)
}

func TestArticleRepositoryTransitions(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))
	ctx := context.Background()

	processing := seedArticle(t, repo, "https://example.com/p", domain.StatusProcessing, 1)
	require.NoError(t, repo.MarkCompleted(ctx, processing.ID))

	stored, err := repo.GetByID(ctx, processing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.AnalysisStatus)

	// A terminal unit cannot be completed again.
	assert.Error(t, repo.MarkCompleted(ctx, processing.ID))

	failing := seedArticle(t, repo, "https://example.com/f", domain.StatusProcessing, 2)
	require.NoError(t, repo.MarkFailed(ctx, failing.ID))
	stored, err = repo.GetByID(ctx, failing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.AnalysisStatus)

	// A pending unit cannot be failed without being claimed first.
	pending := seedArticle(t, repo, "https://example.com/q", domain.StatusPending, 0)
	assert.Error(t, repo.MarkFailed(ctx, pending.ID))
}

func TestArticleRepositoryRelease(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))
	ctx := context.Background()

	article := seedArticle(t, repo, "https://example.com/r", domain.StatusProcessing, 2)
	require.NoError(t, repo.Release(ctx, article.ID))

	stored, err := repo.GetByID(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.AnalysisStatus)
	assert.Equal(t, 2, stored.AnalysisAttempts, "release must not touch the attempt counter")
}

func TestArticleRepositoryResetForRetry(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))
	ctx := context.Background()

	article := seedArticle(t, repo, "https://example.com/rr", domain.StatusFailed, 3)
	require.NoError(t, repo.ResetForRetry(ctx, article.ID))

	stored, err := repo.GetByID(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.AnalysisStatus)
	assert.Equal(t, 0, stored.AnalysisAttempts)

	// Only failed units can be reset.
	assert.Error(t, repo.ResetForRetry(ctx, article.ID))
}

func TestArticleRepositoryCountByStatus(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))
	ctx := context.Background()

	seedArticle(t, repo, "https://example.com/c1", domain.StatusPending, 0)
	seedArticle(t, repo, "https://example.com/c2", domain.StatusPending, 0)
	seedArticle(t, repo, "https://example.com/c3", domain.StatusCompleted, 1)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[domain.StatusPending])
	assert.EqualValues(t, 1, counts[domain.StatusCompleted])
}

func TestArticleRepositorySearch(t *testing.T) {
	repo := NewArticleRepository(newTestDB(t))
	ctx := context.Background()

	match := seedArticle(t, repo, "https://example.com/s1", domain.StatusCompleted, 1)
	require.NoError(t, repo.db.Model(match).Update("title", "LockBit ransomware surge").Error)
	seedArticle(t, repo, "https://example.com/s2", domain.StatusCompleted, 1)

	results, err := repo.Search(ctx, "lockbit", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, match.ID, results[0].ID)
}
