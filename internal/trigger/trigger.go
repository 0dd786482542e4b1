// Package trigger coalesces change notifications into serialized rebuild
// runs. Vendor exports touch several watched files in one sweep, so the
// trigger waits for the burst to go quiet, enforces a minimum spacing
// between run starts, and never begins a run while the previous one is
// still active.
package trigger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config tunes trigger timing.
type Config struct {
	// Quiet is how long notifications must stop arriving before a run fires.
	Quiet time.Duration
	// MinInterval is the minimum spacing between run starts.
	MinInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.Quiet <= 0 {
		c.Quiet = 2 * time.Second
	}
	if c.MinInterval <= 0 {
		c.MinInterval = 15 * time.Second
	}
}

// Trigger collapses bursts of Notify calls into single invocations of the
// run function. Notify never blocks; Run owns the dispatch loop.
type Trigger struct {
	cfg     Config
	logger  *slog.Logger
	limiter *rate.Limiter

	mu      sync.Mutex
	reasons []string

	kick chan struct{}
}

// New creates a trigger. The limiter starts with one token, so the first run
// after a quiet period fires immediately.
func New(cfg Config, logger *slog.Logger) *Trigger {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		kick:    make(chan struct{}, 1),
	}
}

// Notify records a reason and schedules a run. Safe from any goroutine; a
// burst of calls collapses into one run carrying every reason.
func (t *Trigger) Notify(reason string) {
	t.mu.Lock()
	t.reasons = append(t.reasons, reason)
	t.mu.Unlock()

	select {
	case t.kick <- struct{}{}:
	default:
	}
}

// Pending returns the number of reasons waiting for the next run.
func (t *Trigger) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.reasons)
}

func (t *Trigger) takeReasons() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	reasons := t.reasons
	t.reasons = nil
	return reasons
}

// Run dispatches fn for each coalesced notification burst until the context
// ends. fn executes on the calling goroutine, so runs cannot overlap. A run
// error is logged and the loop keeps going; only context cancellation stops
// it.
func (t *Trigger) Run(ctx context.Context, fn func(ctx context.Context, reasons []string) error) error {
	quiet := time.NewTimer(t.cfg.Quiet)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.kick:
		}

		// Wait for the burst to go quiet; each new notification restarts
		// the window.
		quiet.Reset(t.cfg.Quiet)
	settling:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.kick:
				quiet.Reset(t.cfg.Quiet)
			case <-quiet.C:
				break settling
			}
		}

		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}

		reasons := t.takeReasons()
		if len(reasons) == 0 {
			// The previous run already consumed this burst's reasons.
			continue
		}

		t.logger.Info("rebuild triggered", "notifications", len(reasons))
		if err := fn(ctx, reasons); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.Error("triggered run failed", "error", err)
		}
	}
}
