package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samcutley/intelwatch/internal/config"
	"github.com/samcutley/intelwatch/internal/domain"
	"github.com/samcutley/intelwatch/internal/logger"
	"github.com/samcutley/intelwatch/internal/prompts"
	"github.com/samcutley/intelwatch/internal/repository"
)

// WorkerPool runs a fixed number of polling loops that claim pending articles,
// run extraction, and persist decomposed results. Loops stop cooperatively:
// an in-flight batch always finishes before its loop exits.
type WorkerPool struct {
	articles *repository.ArticleRepository
	results  *repository.AnalysisRepository
	analyzer *AnalysisService
	cfg      *config.WorkerConfig

	processed atomic.Int64
	errored   atomic.Int64
	wg        sync.WaitGroup
}

// NewWorkerPool creates a new WorkerPool.
// Parameters:
//   - articles: article repository for claiming and status transitions.
//   - results: analysis repository for result persistence.
//   - analyzer: extraction client.
//   - cfg: pool sizing and timing parameters.
//
// Returns:
//   - *WorkerPool: pool instance; call Start to launch the loops.
func NewWorkerPool(
	articles *repository.ArticleRepository,
	results *repository.AnalysisRepository,
	analyzer *AnalysisService,
	cfg *config.WorkerConfig,
) *WorkerPool {
	return &WorkerPool{
		articles: articles,
		results:  results,
		analyzer: analyzer,
		cfg:      cfg,
	}
}

// Start launches the polling loops. Cancel ctx to request a stop.
// Parameters:
//   - ctx: controls the lifetime of every loop.
func (p *WorkerPool) Start(ctx context.Context) {
	count := p.cfg.Count
	if count <= 0 {
		count = 1
	}
	logger.FromContext(ctx).WithField(logger.FieldCount, count).Info("Starting analysis workers")
	for i := 0; i < count; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.loop(logger.SetWorkerID(ctx, id), id)
		}(i)
	}
}

// Wait blocks until every loop has exited.
// Parameters: none.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Stats returns the aggregate unit counters.
// Parameters: none.
// Returns:
//   - int64: units processed successfully.
//   - int64: units that ended in failure.
func (p *WorkerPool) Stats() (int64, int64) {
	return p.processed.Load(), p.errored.Load()
}

// loop is one polling cycle: claim a batch, process it sequentially, sleep.
// A panic while processing a unit marks that unit failed and pushes the next
// poll out by the error cooldown so a poisoned queue cannot spin the loop.
func (p *WorkerPool) loop(ctx context.Context, id int) {
	log := logger.FromContext(ctx)
	log.Info("Worker loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Worker loop stopping")
			return
		default:
		}

		batch, err := p.articles.ClaimBatch(ctx, p.cfg.BatchSize, p.cfg.MaxAttempts)
		if err != nil {
			log.WithError(err).Error("Failed to claim article batch")
			if !p.sleep(ctx, p.cfg.ErrorCooldown) {
				return
			}
			continue
		}
		if len(batch) == 0 {
			if !p.sleep(ctx, p.cfg.PollInterval) {
				return
			}
			continue
		}

		log.WithField(logger.FieldCount, len(batch)).Info("Claimed article batch")
		faulted := false
		for i := range batch {
			if p.processUnit(ctx, &batch[i]) {
				faulted = true
			}
		}
		if faulted {
			if !p.sleep(ctx, p.cfg.ErrorCooldown) {
				return
			}
		}
	}
}

// processUnit runs extraction for one claimed article and settles its status.
// Returns true when the unit faulted unexpectedly.
func (p *WorkerPool) processUnit(ctx context.Context, article *domain.Article) (faulted bool) {
	log := logger.FromContext(ctx).WithField(logger.FieldArticleID, article.ID)

	defer func() {
		if r := recover(); r != nil {
			faulted = true
			log.WithField("panic", r).Error("Unexpected fault while processing article")
			if err := p.articles.MarkFailed(ctx, article.ID); err != nil {
				log.WithError(err).Error("Failed to mark faulted article")
			}
			p.errored.Add(1)
		}
	}()

	meta := &prompts.ArticleMeta{Title: article.Title}
	if article.PublishedAt != nil {
		meta.PublicationDate = article.PublishedAt.Format(time.RFC3339)
	}

	outcome, err := p.analyzer.Analyze(ctx, article.Content, article.URL, meta)
	if errors.Is(err, ErrContentTooShort) {
		// Not a processing failure: the unit goes back to the queue until
		// a future fetch brings enough content.
		log.WithError(err).Warn("Article released, content below analyzable minimum")
		if relErr := p.articles.Release(ctx, article.ID); relErr != nil {
			log.WithError(relErr).Error("Failed to release article")
		}
		return false
	}
	if err != nil {
		log.WithError(err).WithField("attempts", article.AnalysisAttempts).Error("Article analysis failed")
		if failErr := p.articles.MarkFailed(ctx, article.ID); failErr != nil {
			log.WithError(failErr).Error("Failed to mark article failed")
		}
		p.errored.Add(1)
		return false
	}

	result := BuildAnalysisResult(article.ID, outcome)
	derived := Decompose(article.ID, outcome.Report)
	if err := p.results.SaveResult(ctx, result, derived); err != nil {
		log.WithError(err).Error("Failed to persist analysis result")
		if failErr := p.articles.MarkFailed(ctx, article.ID); failErr != nil {
			log.WithError(failErr).Error("Failed to mark article failed")
		}
		p.errored.Add(1)
		return false
	}
	if err := p.articles.MarkCompleted(ctx, article.ID); err != nil {
		log.WithError(err).Error("Failed to mark article completed")
		p.errored.Add(1)
		return false
	}

	p.processed.Add(1)
	log.WithFields(logger.Fields{
		"attempts":        outcome.Attempts,
		"processing_secs": outcome.ProcessingSeconds,
		"indicators":      len(derived.Indicators),
	}).Info("Article analysis completed")
	return false
}

// sleep waits for d or until ctx is done, whichever comes first.
// Returns false when ctx ended the wait.
func (p *WorkerPool) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
