package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/samcutley/intelwatch/internal/config"
	"github.com/samcutley/intelwatch/internal/domain"
	"github.com/samcutley/intelwatch/internal/fetch"
	"github.com/samcutley/intelwatch/internal/logger"
	"github.com/samcutley/intelwatch/internal/publisher"
	"github.com/samcutley/intelwatch/internal/repository"
	"github.com/samcutley/intelwatch/internal/service"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Format:      "json",
		ServiceName: "intelwatch-crawler",
	})
	logger.SetDefaultLogger(appLogger)

	sourceName := flag.String("source", "", "Crawl only this source (default: all active sources)")
	daemon := flag.Bool("daemon", false, "Keep running and crawl on the configured interval")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	sourceRepo := repository.NewSourceRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	jobRepo := repository.NewCrawlJobRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = appLogger.WithContext(ctx)

	sources, err := syncSources(ctx, sourceRepo, cfg.Sources)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to sync configured sources")
	}

	var notifier service.ArticleNotifier
	if cfg.Publisher.Enabled {
		redisPub := publisher.NewRedisPublisher(&cfg.Publisher)
		defer redisPub.Close()
		notifier = redisPub
		appLogger.WithField("stream", cfg.Publisher.Stream).Info("Article publishing enabled")
	}

	fetcher := fetch.New(cfg.Crawl.Timeout, cfg.Crawl.UserAgent)
	crawler := service.NewCrawlService(fetcher, articleRepo, sourceRepo, jobRepo, &cfg.Crawl, notifier)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	if *daemon || cfg.Scheduler.Enabled {
		scheduler := service.NewScheduler(crawler, sourceRepo, &cfg.Scheduler)
		scheduler.Run(ctx)
		return
	}

	for i := range sources {
		if *sourceName != "" && sources[i].Name != *sourceName {
			continue
		}
		if !sources[i].IsActive {
			continue
		}
		summary, err := crawler.CrawlSource(ctx, &sources[i])
		if err != nil {
			appLogger.WithError(err).WithField(logger.FieldSource, sources[i].Name).Error("Crawl failed")
			continue
		}
		appLogger.WithFields(logger.Fields{
			logger.FieldSource: summary.SourceName,
			"pages_visited":    summary.PagesVisited,
			"articles_found":   summary.ArticlesFound,
			"articles_new":     summary.ArticlesNew,
		}).Info("Crawl completed")
	}
}

// syncSources upserts the configured sources into the store and returns the
// persisted records.
func syncSources(ctx context.Context, repo *repository.SourceRepository, configs []config.SourceConfig) ([]domain.Source, error) {
	sources := make([]domain.Source, 0, len(configs))
	for _, sc := range configs {
		source, err := repo.GetOrCreate(ctx, &domain.Source{
			Name:     sc.Name,
			BaseURL:  sc.BaseURL,
			Type:     domain.SourceType(sc.Type),
			IsActive: sc.IsActive,
			Rules:    sc.Rules,
		})
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}
	return sources, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
