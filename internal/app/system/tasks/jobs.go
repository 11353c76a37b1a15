// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"go.uber.org/zap"
)

// Job is a unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Sweeper runs every orphan sweep once.
type Sweeper interface {
	SweepAll(ctx context.Context) ([]integrity.SweepResult, error)
}

// OrphanSweepJob creates a job that deletes groups, students and months left
// without references. Cascades already keep the store clean, so this only
// catches what a partially failed cascade left behind.
func OrphanSweepJob(sweeper Sweeper, logger *zap.Logger, interval time.Duration) Job {
	return Job{
		Name:     "orphan-sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			results, err := sweeper.SweepAll(ctx)
			for _, r := range results {
				if r.Deleted > 0 || r.Failed > 0 {
					logger.Info("orphan sweep",
						zap.String("collection", r.Collection),
						zap.Int("scanned", r.Scanned),
						zap.Int("deleted", r.Deleted),
						zap.Int("failed", r.Failed))
				}
			}
			return err
		},
	}
}
