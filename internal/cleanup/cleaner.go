package cleanup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper drops sessions idle since before cutoff and reports how many went
type Sweeper interface {
	SweepIdle(cutoff time.Time) int
}

// Cleaner handles periodic cleanup of idle exam and generator sessions
type Cleaner struct {
	sweepers    map[string]Sweeper
	interval    time.Duration
	idleTimeout time.Duration
	now         func() time.Time
	wg          sync.WaitGroup
}

// NewCleaner creates a new cleanup worker
func NewCleaner(sweepers map[string]Sweeper, interval, idleTimeout time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if idleTimeout <= 0 {
		idleTimeout = 2 * time.Hour
	}

	return &Cleaner{
		sweepers:    sweepers,
		interval:    interval,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

// Wait blocks until the worker has stopped
func (c *Cleaner) Wait() {
	c.wg.Wait()
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval, "idle_timeout", c.idleTimeout)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.Sweep()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep runs one cleanup cycle and returns the number of sessions removed per kind
func (c *Cleaner) Sweep() map[string]int {
	slog.Debug("running cleanup cycle")

	cutoff := c.now().Add(-c.idleTimeout)
	removed := make(map[string]int, len(c.sweepers))
	for kind, sweeper := range c.sweepers {
		n := sweeper.SweepIdle(cutoff)
		removed[kind] = n
		if n > 0 {
			slog.Info("idle sessions removed", "kind", kind, "count", n, "cutoff", cutoff)
		}
	}
	return removed
}
