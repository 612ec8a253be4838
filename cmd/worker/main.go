package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/samcutley/intelwatch/internal/config"
	"github.com/samcutley/intelwatch/internal/logger"
	"github.com/samcutley/intelwatch/internal/repository"
	"github.com/samcutley/intelwatch/internal/service"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Format:      "json",
		ServiceName: "intelwatch-worker",
	})
	logger.SetDefaultLogger(appLogger)

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

	articleRepo := repository.NewArticleRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	analyzer := service.NewAnalysisService(&cfg.Analysis)
	pool := service.NewWorkerPool(articleRepo, analysisRepo, analyzer, &cfg.Worker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = appLogger.WithContext(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, stopping workers...")
		cancel()
	}()

	pool.Start(ctx)
	pool.Wait()

	processed, errored := pool.Stats()
	appLogger.WithFields(logger.Fields{
		"processed": processed,
		"errored":   errored,
	}).Info("Worker pool stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
