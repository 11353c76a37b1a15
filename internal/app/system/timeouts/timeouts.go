// Package timeouts holds the deadlines used across the application.
//
// Two layers use them:
//   - Store: applied to every single store round-trip (records.WithTimeout),
//     so one hung backend call cannot stall a whole cascade.
//   - Ping/Short/Medium/Long/Batch: applied by HTTP handlers and workers to a
//     whole operation (a health check, a lookup, a list, a cascade or merge,
//     a spreadsheet import).
//
// Values can be changed at startup with Configure; zero values keep the
// current setting.
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used when Configure is not called.
const (
	DefaultStore  = 5 * time.Second
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 2 * time.Minute
)

// Config holds timeout values. Zero fields are ignored by Configure.
type Config struct {
	Store  time.Duration
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

var (
	mu      sync.RWMutex
	current = defaults()
)

func defaults() Config {
	return Config{
		Store:  DefaultStore,
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Medium: DefaultMedium,
		Long:   DefaultLong,
		Batch:  DefaultBatch,
	}
}

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(current)
}

// Store is the deadline for one store round-trip.
func Store() time.Duration { return get(func(c Config) time.Duration { return c.Store }) }

// Ping is the deadline for health checks.
func Ping() time.Duration { return get(func(c Config) time.Duration { return c.Ping }) }

// Short is for single-record reads.
func Short() time.Duration { return get(func(c Config) time.Duration { return c.Short }) }

// Medium is for list reads and single writes.
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }

// Long is for cascades, merges and sweeps that touch several collections.
func Long() time.Duration { return get(func(c Config) time.Duration { return c.Long }) }

// Batch is for spreadsheet imports.
func Batch() time.Duration { return get(func(c Config) time.Duration { return c.Batch }) }

// Configure overrides the non-zero fields of cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Store > 0 {
		current.Store = cfg.Store
	}
	if cfg.Ping > 0 {
		current.Ping = cfg.Ping
	}
	if cfg.Short > 0 {
		current.Short = cfg.Short
	}
	if cfg.Medium > 0 {
		current.Medium = cfg.Medium
	}
	if cfg.Long > 0 {
		current.Long = cfg.Long
	}
	if cfg.Batch > 0 {
		current.Batch = cfg.Batch
	}
}

// Reset restores the defaults. Useful for testing.
func Reset() {
	mu.Lock()
	current = defaults()
	mu.Unlock()
}

// Current returns the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// WithTimeout creates a context with timeout and returns a cancel function
// that logs a warning if the deadline was hit.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete course")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
