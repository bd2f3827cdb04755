package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/timmy/culturemap/internal/jobs"
	"github.com/timmy/culturemap/internal/logger"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process scheduled imports and periodic feed syncs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			cfg := a.Config

			if metricsAddr == "" {
				metricsAddr = cfg.Scheduler.MetricsAddr
			}
			srv := serveMetrics(metricsAddr)

			queue := jobs.NewQueue(cfg.Scheduler.QueueSize, cfg.Scheduler.Workers)
			queue.Start(ctx)

			var feedRunner jobs.FeedRunner
			feedInterval := time.Duration(0)
			if a.Feed != nil {
				feedRunner = a.Feed
				feedInterval = cfg.Feed.Interval
			}
			scheduler := jobs.NewScheduler(jobs.SchedulerConfig{
				Interval:     cfg.Scheduler.Interval,
				FeedInterval: feedInterval,
			}, queue, a.Imports, a.CSV, feedRunner)

			err = scheduler.Run(ctx)
			queue.Close()
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Listen address of the metrics endpoint (empty uses scheduler.metrics_addr)")
	return cmd
}

func serveMetrics(addr string) *http.Server {
	if addr == "" || addr == "off" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("Serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed: %v", err)
		}
	}()
	return srv
}
