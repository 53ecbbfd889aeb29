package cleanup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	mu      sync.Mutex
	cutoffs []time.Time
	removed int
}

func (f *fakeSweeper) SweepIdle(cutoff time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.removed
}

func (f *fakeSweeper) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestSweepUsesIdleCutoff(t *testing.T) {
	exams := &fakeSweeper{removed: 2}
	drafts := &fakeSweeper{}
	c := NewCleaner(map[string]Sweeper{"exam": exams, "generator": drafts}, time.Minute, time.Hour)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	removed := c.Sweep()
	require.Equal(t, map[string]int{"exam": 2, "generator": 0}, removed)
	require.Equal(t, []time.Time{now.Add(-time.Hour)}, exams.cutoffs)
}

func TestWorkerTicksUntilCancelled(t *testing.T) {
	s := &fakeSweeper{}
	c := NewCleaner(map[string]Sweeper{"exam": s}, 5*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	require.Eventually(t, func() bool { return s.calls() >= 2 }, time.Second, time.Millisecond)

	cancel()
	c.Wait()
	n := s.calls()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, n, s.calls())
}

func TestDefaults(t *testing.T) {
	c := NewCleaner(nil, 0, 0)
	require.Equal(t, 5*time.Minute, c.interval)
	require.Equal(t, 2*time.Hour, c.idleTimeout)
	require.Empty(t, c.Sweep())
}

func TestWorkerSweepsOnStart(t *testing.T) {
	s := &fakeSweeper{}
	c := NewCleaner(map[string]Sweeper{"exam": s}, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	require.Eventually(t, func() bool { return s.calls() == 1 }, time.Second, time.Millisecond)

	cancel()
	c.Wait()
	require.Equal(t, 1, s.calls())
}
