package dispatch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimerInterval is how often timers run when no interval is set.
const DefaultTimerInterval = 30 * time.Second

// Scheduler runs the dispatcher's timers periodically.
type Scheduler struct {
	dispatcher *Dispatcher
	interval   time.Duration
	logger     *slog.Logger
}

// NewScheduler creates a scheduler ticking every interval.
func NewScheduler(d *Dispatcher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultTimerInterval
	}
	return &Scheduler{dispatcher: d, interval: interval, logger: d.logger}
}

// Tick runs every timer once, concurrently, and waits for all of them.
// A failing timer does not affect the others.
func (s *Scheduler) Tick(ctx context.Context) {
	var g errgroup.Group
	for _, t := range s.dispatcher.Timers() {
		g.Go(func() error {
			_ = s.dispatcher.RunTimer(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
}

// Run ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("timer scheduler started", "interval", s.interval, "timers", len(s.dispatcher.Timers()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
