package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/app"
	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/service"
)

// The worker runs the dispatch, aggregation, due-notification and overdue
// jobs on their configured intervals. The same jobs are also reachable as
// GET triggers on the server for external schedulers.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	log.Info("Worker running",
		zap.Duration("poll_interval", cfg.Dispatch.PollInterval),
		zap.Int("batch_size", cfg.Dispatch.BatchSize))
	service.NewWorker(log.Named("worker"), a.Jobs()...).Start(ctx)
	log.Info("Worker stopped")
}
