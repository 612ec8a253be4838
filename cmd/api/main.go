package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samcutley/intelwatch/internal/api"
	"github.com/samcutley/intelwatch/internal/api/middleware"
	"github.com/samcutley/intelwatch/internal/config"
	"github.com/samcutley/intelwatch/internal/fetch"
	"github.com/samcutley/intelwatch/internal/logger"
	"github.com/samcutley/intelwatch/internal/repository"
	"github.com/samcutley/intelwatch/internal/service"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Format:      "json",
		ServiceName: "intelwatch-api",
	})
	logger.SetDefaultLogger(appLogger)

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	repos := &api.Repositories{
		Articles: repository.NewArticleRepository(db),
		Sources:  repository.NewSourceRepository(db),
		Jobs:     repository.NewCrawlJobRepository(db),
		Analysis: repository.NewAnalysisRepository(db),
	}

	// The trigger endpoint reuses the crawl pipeline; no notifier here, the
	// crawler process owns stream publishing.
	fetcher := fetch.New(cfg.Crawl.Timeout, cfg.Crawl.UserAgent)
	crawler := service.NewCrawlService(fetcher, repos.Articles, repos.Sources, repos.Jobs, &cfg.Crawl, nil)

	router := api.SetupRouter(repos, crawler, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}, cfg.Server.Mode)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("port", cfg.Server.Port).Info("API server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("API server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("Shutting down API server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}
	appLogger.Info("API server stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
