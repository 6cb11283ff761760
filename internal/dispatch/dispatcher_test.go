package dispatch

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/roombot/internal/plugin"
	"github.com/rcliao/roombot/internal/store"
	"github.com/rcliao/roombot/internal/transport"
	"github.com/rcliao/roombot/internal/transport/transporttest"
)

type fixture struct {
	registry *plugin.Registry
	tr       *transporttest.Transport
	metrics  *Metrics
	d        *Dispatcher
	opts     plugin.Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	f := &fixture{
		registry: plugin.NewRegistry(nil),
		tr:       transporttest.New(),
		metrics:  m,
		opts: plugin.Options{
			DataDir:   filepath.Join(dir, "data"),
			ConfigDir: filepath.Join(dir, "config"),
			Backend:   store.BackendFile,
		},
	}
	f.d = New(f.registry, f.tr, WithMetrics(m))
	return f
}

func (f *fixture) add(t *testing.T, name string) *plugin.Plugin {
	t.Helper()
	p, err := plugin.New(name, "test", "", f.opts)
	require.NoError(t, err)
	require.NoError(t, f.registry.Register(p))
	return p
}

func message(room, body string) transport.Event {
	return transport.Event{Type: transport.EventMessage, RoomID: room, Sender: "alice", Body: body}
}

func reply(text string) plugin.Handler {
	return plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		_, err := call.Transport.SendMessage(ctx, call.RoomID, text, false)
		return err
	})
}

func TestDispatchCommandFirstMatchWins(t *testing.T) {
	f := newFixture(t)
	first := f.add(t, "first")
	second := f.add(t, "second")
	first.AddCommand("ping", reply("pong from first"), "")
	second.AddCommand("ping", reply("pong from second"), "")

	require.True(t, f.d.DispatchCommand(context.Background(), message("!room", "!ping")))
	sent := f.tr.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "pong from first", sent[0].Text)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Commands.WithLabelValues("first", "ping", "ok")))
}

func TestDispatchCommandPassesArguments(t *testing.T) {
	f := newFixture(t)
	p := f.add(t, "echo")
	var got *plugin.Call
	p.AddCommand("echo", plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		got = call
		return nil
	}), "")

	require.True(t, f.d.DispatchCommand(context.Background(), message("!room", "!echo one  two")))
	require.NotNil(t, got)
	assert.Equal(t, "echo", got.Trigger)
	assert.Equal(t, []string{"one", "two"}, got.Args)
	assert.Equal(t, "!room", got.RoomID)
	assert.Equal(t, "alice", got.Event.Sender)
}

func TestDispatchCommandRoomScope(t *testing.T) {
	f := newFixture(t)
	scoped := f.add(t, "scoped")
	open := f.add(t, "open")
	scoped.AddCommand("ping", reply("scoped"), "", "!ops")
	scoped.AddCommand("other", reply("other"), "", "!lobby")
	open.AddCommand("ping", reply("open"), "")

	ctx := context.Background()
	f.d.DispatchCommand(ctx, message("!ops", "!ping"))
	f.d.DispatchCommand(ctx, message("!lobby", "!ping"))

	sent := f.tr.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "scoped", sent[0].Text)
	assert.Equal(t, "open", sent[1].Text, "entry scope is checked per command, not per plugin")
}

func TestDispatchCommandIgnoresNonCommands(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p").AddCommand("ping", reply("pong"), "")
	ctx := context.Background()

	assert.False(t, f.d.DispatchCommand(ctx, message("!room", "ping")))
	assert.False(t, f.d.DispatchCommand(ctx, message("!room", "!")))
	assert.False(t, f.d.DispatchCommand(ctx, message("!room", "!unknown")))
	assert.Empty(t, f.tr.Sent())
}

func TestDispatchCommandCustomPrefix(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p").AddCommand("ping", reply("pong"), "")
	d := New(f.registry, f.tr, WithPrefix("."))

	assert.False(t, d.DispatchCommand(context.Background(), message("!room", "!ping")))
	assert.True(t, d.DispatchCommand(context.Background(), message("!room", ".ping")))
}

func TestDispatchCommandRecoversHandlerFailures(t *testing.T) {
	f := newFixture(t)
	p := f.add(t, "broken")
	p.AddCommand("boom", plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		panic("boom")
	}), "")
	p.AddCommand("fail", plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		return errors.New("nope")
	}), "")

	ctx := context.Background()
	assert.True(t, f.d.DispatchCommand(ctx, message("!room", "!boom")))
	assert.True(t, f.d.DispatchCommand(ctx, message("!room", "!fail")))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Commands.WithLabelValues("broken", "boom", "panic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Commands.WithLabelValues("broken", "fail", "error")))
}

func TestDispatchEventRunsEveryHook(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, "a")
	b := f.add(t, "b")
	c := f.add(t, "c")

	var count atomic.Int32
	counter := plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		count.Add(1)
		return nil
	})
	a.AddHook(transport.EventReaction, counter)
	a.AddHook(transport.EventReaction, plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		panic("hook exploded")
	}))
	b.AddHook(transport.EventReaction, counter)
	b.AddHook(transport.EventMessage, counter)
	c.AddHook(transport.EventReaction, counter, "!elsewhere")

	ev := transport.Event{Type: transport.EventReaction, RoomID: "!room", RelatesTo: "$1", Key: "👍"}
	n := f.d.DispatchEvent(context.Background(), ev)

	assert.Equal(t, 3, n)
	assert.Equal(t, int32(2), count.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Hooks.WithLabelValues("a", "reaction", "panic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Hooks.WithLabelValues("b", "reaction", "ok")))
}

func TestScopedSiblingShadowsUnscopedHook(t *testing.T) {
	f := newFixture(t)
	p := f.add(t, "b")

	var count atomic.Int32
	counter := plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		count.Add(1)
		return nil
	})
	p.AddHook("custom", counter)

	ev := transport.Event{Type: "custom", RoomID: "!room"}
	assert.Equal(t, 1, f.d.DispatchEvent(context.Background(), ev))
	assert.Equal(t, int32(1), count.Load())

	// Once any registration is scoped, the plugin only applies in the
	// scoped rooms, unscoped siblings included.
	p.AddHook(transport.EventReaction, counter, "!elsewhere")
	assert.Equal(t, 0, f.d.DispatchEvent(context.Background(), ev))
	assert.Equal(t, int32(1), count.Load())

	ev.RoomID = "!elsewhere"
	assert.Equal(t, 1, f.d.DispatchEvent(context.Background(), ev))
	assert.Equal(t, int32(2), count.Load())
}

func TestDispatchEventHooksDoNotBlockEachOther(t *testing.T) {
	f := newFixture(t)
	p := f.add(t, "slow")

	release := make(chan struct{})
	var fast atomic.Bool
	p.AddHook("custom", plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		<-release
		return nil
	}))
	p.AddHook("custom", plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		fast.Store(true)
		close(release)
		return nil
	}))

	done := make(chan struct{})
	go func() {
		f.d.DispatchEvent(context.Background(), transport.Event{Type: "custom", RoomID: "!room"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("hooks blocked each other")
	}
	assert.True(t, fast.Load())
}

func TestServeHandlesEventsUntilClosed(t *testing.T) {
	f := newFixture(t)
	p := f.add(t, "p")
	p.AddCommand("ping", reply("pong"), "")

	var hooked atomic.Int32
	p.AddHook(transport.EventMessage, plugin.HandlerFunc(func(ctx context.Context, call *plugin.Call) error {
		hooked.Add(1)
		return nil
	}))

	events := make(chan transport.Event, 3)
	events <- message("!room", "!ping")
	events <- message("!room", "hello")
	events <- message("!room", "!ping")
	close(events)

	require.NoError(t, f.d.Serve(context.Background(), events))
	assert.Len(t, f.tr.Sent(), 2)
	assert.Equal(t, int32(3), hooked.Load())
}

func TestServeStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan transport.Event)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, f.d.Serve(ctx, events))
	}()
	cancel()
	wg.Wait()
}
