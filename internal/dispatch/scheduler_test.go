package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/roombot/internal/plugin"
)

func TestSchedulerTickRunsAllTimers(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, "a")
	b := f.add(t, "b")

	var ran atomic.Int32
	tick := plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		assert.NotNil(t, call.Transport)
		ran.Add(1)
		return nil
	})
	a.AddTimer(tick)
	a.AddTimer(plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		return errors.New("timer failed")
	}))
	b.AddTimer(tick)

	require.Len(t, f.d.Timers(), 3)
	NewScheduler(f.d, time.Hour).Tick(context.Background())

	assert.Equal(t, int32(2), ran.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Timers.WithLabelValues("a", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Timers.WithLabelValues("a", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Timers.WithLabelValues("b", "ok")))
}

func TestSchedulerRunTicksUntilCancelled(t *testing.T) {
	f := newFixture(t)
	p := f.add(t, "p")

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int32
	p.AddTimer(plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		if ran.Add(1) == 2 {
			cancel()
		}
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- NewScheduler(f.d, 5*time.Millisecond).Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, ran.Load(), int32(2))
}

func TestNewSchedulerDefaultsInterval(t *testing.T) {
	f := newFixture(t)
	s := NewScheduler(f.d, 0)
	assert.Equal(t, DefaultTimerInterval, s.interval)
}

func TestNilMetricsAreIgnored(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.observe(kindCommand, "p", "c", outcomeOK, time.Millisecond) })
}
