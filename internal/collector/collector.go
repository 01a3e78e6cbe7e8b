// Package collector provides the telemetry collection framework.
package collector

import (
	"context"
	"log/slog"
	"time"
)

// Collector is the interface for all telemetry collectors.
type Collector interface {
	Name() string
	Collect(ctx context.Context) error
	Interval() time.Duration
}

// WorkerPool bounds concurrent remote polls across all collectors.
type WorkerPool struct {
	sem chan struct{}
}

// NewWorkerPool creates a worker pool with the given max concurrent workers.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	return &WorkerPool{sem: make(chan struct{}, maxWorkers)}
}

// Submit runs fn in the pool, blocking if all workers are busy.
// Returns ctx.Err() if context is cancelled while waiting.
func (p *WorkerPool) Submit(ctx context.Context, fn func()) error {
	select {
	case p.sem <- struct{}{}:
		go func() {
			defer func() { <-p.sem }()
			fn()
		}()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts a collector loop that calls Collect at the configured interval.
// It blocks until the context is cancelled.
func Run(ctx context.Context, c Collector) error {
	name := c.Name()
	interval := c.Interval()
	slog.Info("collector started", "name", name, "interval", interval)

	// Collect immediately on startup
	if err := c.Collect(ctx); err != nil {
		slog.Error("collection failed", "collector", name, "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("collector stopped", "name", name)
			return ctx.Err()
		case <-ticker.C:
			if err := c.Collect(ctx); err != nil {
				slog.Error("collection failed", "collector", name, "error", err)
			}
		}
	}
}
