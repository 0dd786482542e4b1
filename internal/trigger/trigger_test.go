package trigger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyBurstCoalesces(t *testing.T) {
	tr := New(Config{Quiet: 20 * time.Millisecond, MinInterval: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var runs [][]string
	done := make(chan struct{})

	go func() {
		_ = tr.Run(ctx, func(_ context.Context, reasons []string) error {
			mu.Lock()
			runs = append(runs, reasons)
			mu.Unlock()
			select {
			case done <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	tr.Notify("catalog.csv")
	tr.Notify("catalog.csv")
	tr.Notify("aliases.csv")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, runs, 1)
	assert.Equal(t, []string{"catalog.csv", "catalog.csv", "aliases.csv"}, runs[0])
	assert.Equal(t, 0, tr.Pending())
}

func TestRunsNeverOverlap(t *testing.T) {
	tr := New(Config{Quiet: 5 * time.Millisecond, MinInterval: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var active, maxActive, total atomic.Int32
	started := make(chan struct{}, 16)

	go func() {
		_ = tr.Run(ctx, func(_ context.Context, _ []string) error {
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			total.Add(1)
			started <- struct{}{}
			time.Sleep(30 * time.Millisecond)
			active.Add(-1)
			return nil
		})
	}()

	tr.Notify("first")
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never started")
	}

	// Notifications during an active run queue a follow-up, not a parallel
	// run.
	tr.Notify("during-run-1")
	tr.Notify("during-run-2")

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("follow-up run never started")
	}

	assert.Equal(t, int32(1), maxActive.Load())
	assert.Equal(t, int32(2), total.Load())
}

func TestRunErrorKeepsLoopAlive(t *testing.T) {
	tr := New(Config{Quiet: 5 * time.Millisecond, MinInterval: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	ran := make(chan struct{}, 4)

	go func() {
		_ = tr.Run(ctx, func(_ context.Context, _ []string) error {
			calls.Add(1)
			ran <- struct{}{}
			return assert.AnError
		})
	}()

	tr.Notify("one")
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never fired")
	}

	tr.Notify("two")
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("loop died after run error")
	}

	assert.Equal(t, int32(2), calls.Load())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	tr := New(Config{Quiet: time.Hour, MinInterval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() {
		errCh <- tr.Run(ctx, func(_ context.Context, _ []string) error { return nil })
	}()

	// Cancel while the loop is parked waiting for the quiet window.
	tr.Notify("never-runs")
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.setDefaults()
	assert.Equal(t, 2*time.Second, cfg.Quiet)
	assert.Equal(t, 15*time.Second, cfg.MinInterval)
}
