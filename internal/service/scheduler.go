package service

import (
	"context"
	"time"

	"github.com/samcutley/intelwatch/internal/config"
	"github.com/samcutley/intelwatch/internal/logger"
	"github.com/samcutley/intelwatch/internal/repository"
)

// Scheduler triggers periodic crawl runs for every active source. Sources are
// crawled sequentially within a tick; a slow tick never overlaps the next one.
type Scheduler struct {
	crawler *CrawlService
	sources *repository.SourceRepository
	cfg     *config.SchedulerConfig
}

// NewScheduler creates a new Scheduler.
// Parameters:
//   - crawler: crawl orchestrator invoked per source.
//   - sources: source repository.
//   - cfg: scheduling interval configuration.
//
// Returns:
//   - *Scheduler: scheduler instance; call Run to start ticking.
func NewScheduler(crawler *CrawlService, sources *repository.SourceRepository, cfg *config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		crawler: crawler,
		sources: sources,
		cfg:     cfg,
	}
}

// Run crawls all active sources once immediately, then on every interval tick
// until ctx is cancelled.
// Parameters:
//   - ctx: controls the scheduler lifetime.
func (s *Scheduler) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.WithField("interval", s.cfg.Interval.String()).Info("Scheduler started")

	s.runOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Scheduler stopping")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce crawls every active source. Per-source failures are logged and do
// not block the remaining sources.
func (s *Scheduler) runOnce(ctx context.Context) {
	log := logger.FromContext(ctx)

	sources, err := s.sources.List(ctx, true)
	if err != nil {
		log.WithError(err).Error("Failed to list active sources")
		return
	}
	for i := range sources {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.crawler.CrawlSource(ctx, &sources[i]); err != nil {
			log.WithError(err).WithField(logger.FieldSource, sources[i].Name).Error("Scheduled crawl failed")
		}
	}
}
