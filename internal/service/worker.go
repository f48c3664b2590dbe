package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is one periodic background task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Worker runs jobs on their own tickers until the context is cancelled.
// Each job runs once immediately on start.
type Worker struct {
	Jobs []Job
	Log  *zap.Logger
}

func NewWorker(log *zap.Logger, jobs ...Job) *Worker {
	return &Worker{Jobs: jobs, Log: log}
}

// Start blocks until ctx is done and every job loop has returned.
func (w *Worker) Start(ctx context.Context) {
	done := make(chan struct{}, len(w.Jobs))
	for _, job := range w.Jobs {
		go func(job Job) {
			defer func() { done <- struct{}{} }()
			w.loop(ctx, job)
		}(job)
	}
	for range w.Jobs {
		<-done
	}
}

func (w *Worker) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx, job)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) runOnce(ctx context.Context, job Job) {
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		w.Log.Error("Job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	w.Log.Debug("Job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
}
