package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcutley/intelwatch/internal/config"
	"github.com/samcutley/intelwatch/internal/domain"
	"github.com/samcutley/intelwatch/internal/fetch"
	"github.com/samcutley/intelwatch/internal/logger"
	"github.com/samcutley/intelwatch/internal/repository"
)

// ErrInvalidRules marks a source whose extraction rules cannot drive a crawl.
// This is a configuration defect, never a transient condition.
var ErrInvalidRules = errors.New("invalid extraction rules")

// ArticleNotifier receives newly discovered articles. Implementations must be
// safe for concurrent use.
type ArticleNotifier interface {
	NotifyNew(ctx context.Context, article *domain.Article) error
}

// CrawlService orchestrates one crawl run per source: page iteration, listing
// extraction, bounded concurrent article fetches, change detection, and job
// bookkeeping. Individual page or article failures never abort the run.
type CrawlService struct {
	fetcher  *fetch.Client
	articles *repository.ArticleRepository
	sources  *repository.SourceRepository
	jobs     *repository.CrawlJobRepository
	cfg      *config.CrawlConfig
	notifier ArticleNotifier
}

// NewCrawlService creates a new CrawlService.
// Parameters:
//   - fetcher: HTTP fetch and extraction client.
//   - articles: article repository.
//   - sources: source repository.
//   - jobs: crawl job repository.
//   - cfg: crawl tuning parameters.
//   - notifier: optional new-article notifier, may be nil.
//
// Returns:
//   - *CrawlService: service instance.
func NewCrawlService(
	fetcher *fetch.Client,
	articles *repository.ArticleRepository,
	sources *repository.SourceRepository,
	jobs *repository.CrawlJobRepository,
	cfg *config.CrawlConfig,
	notifier ArticleNotifier,
) *CrawlService {
	return &CrawlService{
		fetcher:  fetcher,
		articles: articles,
		sources:  sources,
		jobs:     jobs,
		cfg:      cfg,
		notifier: notifier,
	}
}

// itemResult is the outcome of processing a single listing item.
type itemResult struct {
	created bool
	change  ChangeKind
	err     error
}

// CrawlSource runs one full crawl of the given source. A job record tracks the
// run; it is finalized exactly once, as completed or failed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: persisted source with extraction rules.
//
// Returns:
//   - *domain.JobSummary: run counters, nil on job-level failure.
//   - error: non-nil when the run could not complete.
func (s *CrawlService) CrawlSource(ctx context.Context, source *domain.Source) (*domain.JobSummary, error) {
	start := time.Now()
	ctx = logger.SetSource(ctx, source.Name)

	job, err := s.jobs.Start(ctx, source.ID)
	if err != nil {
		return nil, fmt.Errorf("start crawl job: %w", err)
	}
	ctx = logger.SetJobID(ctx, job.ID)
	log := logger.FromContext(ctx)

	if err := validateRules(&source.Rules); err != nil {
		log.WithError(err).Error("Source rules failed validation")
		if failErr := s.jobs.Fail(ctx, job.ID, err.Error()); failErr != nil {
			log.WithError(failErr).Error("Failed to mark crawl job failed")
		}
		return nil, err
	}

	var pagesVisited, articlesFound, articlesNew int

	for page := 1; page <= s.maxPages(source); page++ {
		pageURL, ok := s.pageURL(source, page)
		if !ok {
			break
		}
		if page > 1 && s.cfg.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return s.failJob(ctx, job.ID, ctx.Err())
			case <-time.After(s.cfg.RequestDelay):
			}
		}

		items, err := s.fetcher.Listing(ctx, pageURL, source.Rules.Listing)
		if err != nil {
			pagesVisited++
			log.WithError(err).WithField("page", page).Warn("Listing page fetch failed, continuing")
			continue
		}
		pagesVisited++
		if len(items) == 0 {
			log.WithField("page", page).Debug("Empty listing page, stopping pagination")
			break
		}

		found, created := s.processPage(ctx, source, pageURL, items)
		articlesFound += found
		articlesNew += created
	}

	if err := s.jobs.Complete(ctx, job.ID, pagesVisited, articlesFound, articlesNew); err != nil {
		return nil, fmt.Errorf("finalize crawl job: %w", err)
	}
	if err := s.sources.TouchCrawled(ctx, source.ID, time.Now()); err != nil {
		log.WithError(err).Warn("Failed to update source crawl timestamp")
	}

	summary := &domain.JobSummary{
		JobID:         job.ID,
		SourceName:    source.Name,
		PagesVisited:  pagesVisited,
		ArticlesFound: articlesFound,
		ArticlesNew:   articlesNew,
		Duration:      time.Since(start),
	}
	log.WithFields(logger.Fields{
		"pages_visited":      summary.PagesVisited,
		"articles_found":     summary.ArticlesFound,
		"articles_new":       summary.ArticlesNew,
		logger.FieldDurationMs: summary.Duration.Milliseconds(),
	}).Info("Crawl run completed")
	return summary, nil
}

// processPage fans the page's items out to bounded concurrent workers and
// aggregates their outcomes. Item failures are logged and skipped.
func (s *CrawlService) processPage(ctx context.Context, source *domain.Source, pageURL string, items []fetch.Item) (found, created int) {
	log := logger.FromContext(ctx)

	limit := s.cfg.MaxConcurrentFetches
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	results := make(chan itemResult, len(items))

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(item fetch.Item) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- s.processItem(ctx, source, pageURL, item)
		}(item)
	}
	wg.Wait()
	close(results)

	for res := range results {
		if res.err != nil {
			log.WithError(res.err).Warn("Listing item skipped")
			continue
		}
		found++
		if res.created {
			created++
		}
	}
	return found, created
}

// processItem fetches one article, fingerprints it, and reconciles it with
// the store. Unchanged content is left untouched; changed content re-enters
// the analysis queue as a fresh pending unit.
func (s *CrawlService) processItem(ctx context.Context, source *domain.Source, pageURL string, item fetch.Item) itemResult {
	articleURL, err := resolveURL(pageURL, item["article_url"])
	if err != nil {
		return itemResult{err: fmt.Errorf("resolve article url %q: %w", item["article_url"], err)}
	}

	existing, err := s.articles.GetByURL(ctx, articleURL)
	if err != nil {
		return itemResult{err: fmt.Errorf("lookup article %s: %w", articleURL, err)}
	}

	content, err := s.fetcher.Article(ctx, articleURL, source.Rules.Article)
	if err != nil {
		return itemResult{err: fmt.Errorf("fetch article %s: %w", articleURL, err)}
	}

	hash := Fingerprint(content)
	change := DetectChange(existing, hash)
	if change == ChangeNone {
		return itemResult{change: change}
	}

	article := &domain.Article{
		ID:               uuid.New().String(),
		SourceID:         source.ID,
		URL:              articleURL,
		Title:            item["title"],
		Summary:          item["summary"],
		Content:          content,
		ContentHash:      hash,
		PublishedAt:      parsePublishedAt(item["published_at"]),
		AnalysisStatus:   domain.StatusPending,
		AnalysisAttempts: 0,
	}
	created, err := s.articles.Upsert(ctx, article)
	if err != nil {
		return itemResult{err: fmt.Errorf("upsert article %s: %w", articleURL, err)}
	}

	if created && s.notifier != nil {
		if err := s.notifier.NotifyNew(ctx, article); err != nil {
			logger.FromContext(ctx).WithError(err).
				WithField(logger.FieldArticleID, article.ID).
				Warn("New article notification failed")
		}
	}
	return itemResult{created: created, change: change}
}

// failJob finalizes the job as failed and returns the original error.
func (s *CrawlService) failJob(ctx context.Context, jobID string, cause error) (*domain.JobSummary, error) {
	if err := s.jobs.Fail(ctx, jobID, cause.Error()); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to mark crawl job failed")
	}
	return nil, cause
}

// maxPages returns the page ceiling for the source, falling back to the
// global default when the source does not set one.
func (s *CrawlService) maxPages(source *domain.Source) int {
	if source.Rules.MaxPages > 0 {
		return source.Rules.MaxPages
	}
	if s.cfg.MaxPagesPerSource > 0 {
		return s.cfg.MaxPagesPerSource
	}
	return 1
}

// pageURL builds the URL for the given 1-based page. Page 1 is always the
// base URL; later pages require a template, otherwise pagination stops.
func (s *CrawlService) pageURL(source *domain.Source, page int) (string, bool) {
	if page == 1 {
		return source.BaseURL, true
	}
	if source.Rules.PageURLTemplate == "" {
		return "", false
	}
	return strings.ReplaceAll(source.Rules.PageURLTemplate, "{page}", strconv.Itoa(page)), true
}

// validateRules checks that the ruleset can actually drive a crawl.
func validateRules(rules *domain.CrawlRules) error {
	if rules.Listing == nil || rules.Listing.ItemSelector == "" {
		return fmt.Errorf("%w: missing listing item selector", ErrInvalidRules)
	}
	if _, ok := rules.Listing.Fields["article_url"]; !ok {
		return fmt.Errorf("%w: listing fields must include article_url", ErrInvalidRules)
	}
	if rules.Article == nil || rules.Article.ContentSelector == "" {
		return fmt.Errorf("%w: missing article content selector", ErrInvalidRules)
	}
	return nil
}

// resolveURL resolves a possibly relative article link against the page it
// was extracted from.
func resolveURL(pageURL, href string) (string, error) {
	if href == "" {
		return "", errors.New("empty article url")
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// parsePublishedAt parses the published date field as emitted by common
// sources. Unparseable values are dropped rather than failing the item.
func parsePublishedAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"Jan 2, 2006",
		"January 2, 2006",
		"02 Jan 2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
