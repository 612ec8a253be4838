package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/samcutley/intelwatch/internal/config"
	"github.com/samcutley/intelwatch/internal/domain"
	"github.com/samcutley/intelwatch/internal/fetch"
	"github.com/samcutley/intelwatch/internal/repository"
)

func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, repository.Migrate(db))
	return db
}

// crawlSite serves a two-page listing plus article bodies, and records every
// requested path.
type crawlSite struct {
	mu       sync.Mutex
	listed   int
	articles map[string]string
	paths    []string
}

func newCrawlSite(articleCount int) *crawlSite {
	site := &crawlSite{listed: articleCount, articles: map[string]string{}}
	for i := 1; i <= articleCount; i++ {
		site.articles[fmt.Sprintf("/articles/%d", i)] = fmt.Sprintf(
			"Full threat intelligence report number %d with enough body text to matter.", i)
	}
	return site
}

func (s *crawlSite) setArticle(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[path] = body
}

func (s *crawlSite) requested(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.paths {
		if p == path {
			return true
		}
	}
	return false
}

func (s *crawlSite) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.paths = append(s.paths, r.URL.Path)
		s.mu.Unlock()

		switch {
		case r.URL.Path == "/listing":
			var b strings.Builder
			b.WriteString("<html><body>")
			s.mu.Lock()
			n := s.listed
			s.mu.Unlock()
			for i := 1; i <= n; i++ {
				fmt.Fprintf(&b, `<div class="post"><h2>Report %d</h2><a class="link" href="/articles/%d">read</a><p class="excerpt">Teaser %d</p></div>`, i, i, i)
			}
			b.WriteString("</body></html>")
			w.Write([]byte(b.String()))
		case r.URL.Path == "/listing/page/2":
			w.Write([]byte(`<html><body><p>No more posts</p></body></html>`))
		default:
			s.mu.Lock()
			body, ok := s.articles[r.URL.Path]
			s.mu.Unlock()
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprintf(w, `<html><body><div class="content">%s</div></body></html>`, body)
		}
	})
}

func testCrawlRules(serverURL string) domain.CrawlRules {
	return domain.CrawlRules{
		Listing: &domain.ListingRules{
			ItemSelector: "div.post",
			Fields: map[string]domain.FieldRule{
				"article_url": {Selector: "a.link", Attr: "href"},
				"title":       {Selector: "h2"},
				"summary":     {Selector: "p.excerpt"},
			},
		},
		Article:         &domain.ArticleRules{ContentSelector: "div.content"},
		PageURLTemplate: serverURL + "/listing/page/{page}",
		MaxPages:        10,
	}
}

// countingNotifier records published articles.
type countingNotifier struct {
	mu   sync.Mutex
	urls []string
}

func (n *countingNotifier) NotifyNew(_ context.Context, article *domain.Article) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, article.URL)
	return nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.urls)
}

func newCrawlFixture(t *testing.T, site *crawlSite) (*CrawlService, *repository.ArticleRepository, *repository.CrawlJobRepository, *domain.Source, *countingNotifier) {
	t.Helper()

	server := httptest.NewServer(site.handler())
	t.Cleanup(server.Close)

	db := newServiceTestDB(t)
	articleRepo := repository.NewArticleRepository(db)
	sourceRepo := repository.NewSourceRepository(db)
	jobRepo := repository.NewCrawlJobRepository(db)

	source, err := sourceRepo.GetOrCreate(context.Background(), &domain.Source{
		Name:     "testsource",
		BaseURL:  server.URL + "/listing",
		Type:     domain.SourceTypeNews,
		IsActive: true,
		Rules:    testCrawlRules(server.URL),
	})
	require.NoError(t, err)

	notifier := &countingNotifier{}
	crawler := NewCrawlService(
		fetch.New(5*time.Second, "test-agent"),
		articleRepo, sourceRepo, jobRepo,
		&config.CrawlConfig{MaxConcurrentFetches: 2, MaxPagesPerSource: 10},
		notifier,
	)
	return crawler, articleRepo, jobRepo, source, notifier
}

func TestCrawlSourceStopsAtEmptyPage(t *testing.T) {
	site := newCrawlSite(5)
	crawler, articleRepo, jobRepo, source, notifier := newCrawlFixture(t, site)
	ctx := context.Background()

	summary, err := crawler.CrawlSource(ctx, source)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.PagesVisited, "empty page 2 ends pagination")
	assert.Equal(t, 5, summary.ArticlesFound)
	assert.Equal(t, 5, summary.ArticlesNew)
	assert.False(t, site.requested("/listing/page/3"), "page 3 must never be fetched")

	articles, err := articleRepo.ListByStatus(ctx, domain.StatusPending, 50, 0)
	require.NoError(t, err)
	assert.Len(t, articles, 5)
	for _, a := range articles {
		assert.NotEmpty(t, a.ContentHash)
		assert.Contains(t, a.URL, "/articles/")
	}

	jobs, err := jobRepo.List(ctx, source.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobStatusCompleted, jobs[0].Status)
	assert.Equal(t, 2, jobs[0].PagesVisited)
	assert.Equal(t, 5, jobs[0].ArticlesFound)
	assert.Equal(t, 5, jobs[0].ArticlesNew)

	assert.Equal(t, 5, notifier.count())
}

func TestCrawlSourceIdempotentRefetch(t *testing.T) {
	site := newCrawlSite(3)
	crawler, articleRepo, _, source, notifier := newCrawlFixture(t, site)
	ctx := context.Background()

	_, err := crawler.CrawlSource(ctx, source)
	require.NoError(t, err)

	// Mark one unit completed so the re-crawl can be seen to leave it alone.
	done, err := articleRepo.ClaimBatch(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, done, 1)
	require.NoError(t, articleRepo.MarkCompleted(ctx, done[0].ID))

	summary, err := crawler.CrawlSource(ctx, source)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.ArticlesFound)
	assert.Equal(t, 0, summary.ArticlesNew, "identical content creates nothing")

	stored, err := articleRepo.GetByID(ctx, done[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.AnalysisStatus, "unchanged unit keeps its status")
	assert.Equal(t, 1, stored.AnalysisAttempts)

	assert.Equal(t, 3, notifier.count(), "re-fetch publishes nothing new")
}

func TestCrawlSourceChangeTriggersReprocessing(t *testing.T) {
	site := newCrawlSite(2)
	crawler, articleRepo, _, source, _ := newCrawlFixture(t, site)
	ctx := context.Background()

	_, err := crawler.CrawlSource(ctx, source)
	require.NoError(t, err)

	claimed, err := articleRepo.ClaimBatch(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	for _, a := range claimed {
		require.NoError(t, articleRepo.MarkCompleted(ctx, a.ID))
	}

	changedURL := strings.TrimSuffix(source.BaseURL, "/listing") + "/articles/1"
	before, err := articleRepo.GetByURL(ctx, changedURL)
	require.NoError(t, err)
	require.NotNil(t, before)

	site.setArticle("/articles/1", "Rewritten advisory with new indicators and remediation guidance.")

	summary, err := crawler.CrawlSource(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ArticlesNew)

	updated, err := articleRepo.GetByURL(ctx, changedURL)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, domain.StatusPending, updated.AnalysisStatus, "changed content re-enters the queue")
	assert.NotEqual(t, before.ContentHash, updated.ContentHash)
	assert.Equal(t, 1, updated.AnalysisAttempts, "attempt counter survives the change")

	other, err := articleRepo.GetByID(ctx, pickOther(claimed, before.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, other.AnalysisStatus, "unchanged sibling is untouched")
}

func pickOther(articles []domain.Article, id string) string {
	for _, a := range articles {
		if a.ID != id {
			return a.ID
		}
	}
	return ""
}

func TestCrawlSourceInvalidRulesFailsJob(t *testing.T) {
	site := newCrawlSite(1)
	crawler, _, jobRepo, source, _ := newCrawlFixture(t, site)
	ctx := context.Background()

	source.Rules.Article = nil
	_, err := crawler.CrawlSource(ctx, source)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRules))

	jobs, err := jobRepo.List(ctx, source.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobStatusFailed, jobs[0].Status)
	assert.NotEmpty(t, jobs[0].ErrorMessage)
}

func TestCrawlSourceToleratesArticleFailures(t *testing.T) {
	site := newCrawlSite(3)
	crawler, articleRepo, jobRepo, source, _ := newCrawlFixture(t, site)
	ctx := context.Background()

	// One article page breaks; the rest of the run proceeds.
	site.mu.Lock()
	delete(site.articles, "/articles/2")
	site.mu.Unlock()

	summary, err := crawler.CrawlSource(ctx, source)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ArticlesFound, "failed unit is skipped, not fatal")
	assert.Equal(t, 2, summary.ArticlesNew)

	articles, err := articleRepo.ListByStatus(ctx, domain.StatusPending, 50, 0)
	require.NoError(t, err)
	assert.Len(t, articles, 2)

	jobs, err := jobRepo.List(ctx, source.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobStatusCompleted, jobs[0].Status)
}
