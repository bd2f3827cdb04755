package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/culturemap/internal/logger"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnv("culturemap-worker"))
	logger.SetDefaultLogger(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
