package workers_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/app/system/tasks"
	"github.com/dalemusser/coursedesk/internal/app/system/workers"
	"go.uber.org/zap"
)

type fakeSweeper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSweeper) SweepAll(ctx context.Context) ([]integrity.SweepResult, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("no deadline")
	}
	return []integrity.SweepResult{{Collection: "groups", Scanned: 2, Deleted: 1}}, f.err
}

func TestRunner_RunOnce(t *testing.T) {
	sw := &fakeSweeper{}
	r := workers.NewRunner(tasks.OrphanSweepJob(sw, zap.NewNop(), time.Hour), zap.NewNop())

	if err := r.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if got := sw.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestRunner_RunOnceReturnsJobError(t *testing.T) {
	boom := errors.New("boom")
	sw := &fakeSweeper{err: boom}
	r := workers.NewRunner(tasks.OrphanSweepJob(sw, zap.NewNop(), time.Hour), zap.NewNop())

	if err := r.RunOnce(); !errors.Is(err, boom) {
		t.Fatalf("RunOnce error = %v, want %v", err, boom)
	}
}

func TestRunner_TicksUntilStopped(t *testing.T) {
	sw := &fakeSweeper{}
	r := workers.NewRunner(tasks.OrphanSweepJob(sw, zap.NewNop(), 5*time.Millisecond), zap.NewNop())

	r.Start()
	deadline := time.Now().Add(2 * time.Second)
	for sw.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()
	r.Stop()

	n := sw.calls.Load()
	if n < 2 {
		t.Fatalf("calls = %d, want at least 2", n)
	}
	time.Sleep(20 * time.Millisecond)
	if after := sw.calls.Load(); after != n {
		t.Errorf("job ran after Stop: %d -> %d", n, after)
	}
}

func TestNewRunner_DefaultInterval(t *testing.T) {
	job := tasks.Job{Name: "noop", Run: func(context.Context) error { return nil }}
	r := workers.NewRunner(job, zap.NewNop())
	r.Start()
	r.Stop()
}
