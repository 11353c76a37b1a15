// internal/app/system/workers/runner.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/system/tasks"
	"github.com/dalemusser/coursedesk/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Runner is a background worker that runs one job on a fixed interval.
type Runner struct {
	job      tasks.Job
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRunner creates a worker for job. A non-positive job interval falls back
// to one hour.
func NewRunner(job tasks.Job, logger *zap.Logger) *Runner {
	interval := job.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Runner{
		job:      job,
		log:      logger.With(zap.String("job", job.Name)),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *Runner) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. Calling Stop
// more than once is safe.
func (w *Runner) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("worker stopped")
}

// RunOnce runs the job immediately on the caller's goroutine.
func (w *Runner) RunOnce() error {
	ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Batch(), w.log, w.job.Name)
	defer cancel()

	start := time.Now()
	err := w.job.Run(ctx)
	if err != nil {
		w.log.Error("job failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return err
	}
	w.log.Debug("job finished", zap.Duration("took", time.Since(start)))
	return nil
}

func (w *Runner) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			_ = w.RunOnce()
		}
	}
}
