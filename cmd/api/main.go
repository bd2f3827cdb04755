package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/culturemap/internal/api"
	"github.com/timmy/culturemap/internal/app"
	"github.com/timmy/culturemap/internal/config"
	"github.com/timmy/culturemap/internal/jobs"
	"github.com/timmy/culturemap/internal/logger"
	"github.com/timmy/culturemap/internal/service"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnv("culturemap-api"))
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	// Scheduled imports are submitted right away; the worker's scheduler picks
	// up whatever this queue rejects or loses on restart.
	queue := jobs.NewQueue(cfg.Scheduler.QueueSize, cfg.Scheduler.Workers)
	queue.Start(ctx)

	var feedRunner jobs.FeedRunner
	if a.Feed != nil {
		feedRunner = a.Feed
	}
	imports := service.NewImportService(a.Imports, a.Files, a.CSV, queue, a.CSV)
	feed := service.NewFeedService(a.Runs, queue, feedRunner)

	sqlDB, err := a.DB.DB()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to access database pool")
	}
	router, err := api.SetupRouter(&cfg.Server, api.Services{Imports: imports, Feed: feed, DB: sqlDB}, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to set up router")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	queue.Close()

	appLogger.Info("Server exited")
}
