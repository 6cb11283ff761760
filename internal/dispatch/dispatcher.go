// Package dispatch routes inbound chat events to plugin handlers.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rcliao/roombot/internal/logging"
	"github.com/rcliao/roombot/internal/plugin"
	"github.com/rcliao/roombot/internal/transport"
)

// DefaultPrefix marks a message as a command.
const DefaultPrefix = "!"

// ErrHandlerPanic wraps a value recovered from a panicking handler.
var ErrHandlerPanic = errors.New("handler panicked")

// Dispatcher resolves commands and events against the plugin registry.
type Dispatcher struct {
	registry  *plugin.Registry
	transport transport.Transport
	prefix    string
	logger    *slog.Logger
	metrics   *Metrics

	inflight sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPrefix sets the command prefix.
func WithPrefix(prefix string) Option {
	return func(d *Dispatcher) { d.prefix = prefix }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithMetrics enables handler metrics.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a dispatcher sending replies through tr.
func New(registry *plugin.Registry, tr transport.Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		transport: tr,
		prefix:    DefaultPrefix,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchCommand runs the first command handler matching the event's
// trigger in the event's room. It reports whether a handler ran.
func (d *Dispatcher) DispatchCommand(ctx context.Context, ev transport.Event) bool {
	text, ok := strings.CutPrefix(ev.Body, d.prefix)
	if !ok {
		return false
	}
	call := plugin.NewCommandCall(d.transport, ev, text)
	if call.Trigger == "" {
		return false
	}

	for _, p := range d.registry.ForRoom(ev.RoomID) {
		entry, ok := p.Command(call.Trigger)
		if !ok || !entry.ValidForRoom(ev.RoomID) {
			continue
		}
		d.invoke(ctx, p, kindCommand, call.Trigger, entry.Handler, call)
		return true
	}

	d.logger.Debug("unknown command", "command", call.Trigger, "room", ev.RoomID, "sender", ev.Sender)
	return false
}

// DispatchEvent runs every hook registered for the event's type in the
// event's room. Each hook runs on its own goroutine; DispatchEvent returns
// once all of them have finished. It returns the number of hooks run.
func (d *Dispatcher) DispatchEvent(ctx context.Context, ev transport.Event) int {
	var wg sync.WaitGroup
	n := 0
	for _, p := range d.registry.ForRoom(ev.RoomID) {
		for _, hook := range p.Hooks(ev.Type) {
			if !hook.ValidForRoom(ev.RoomID) {
				continue
			}
			n++
			call := &plugin.Call{Transport: d.transport, Event: ev, RoomID: ev.RoomID}
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.invoke(ctx, p, kindHook, ev.Type, hook.Handler, call)
			}()
		}
	}
	wg.Wait()
	return n
}

// Serve handles events until the channel closes or ctx is done, then waits
// for in-flight handlers.
func (d *Dispatcher) Serve(ctx context.Context, events <-chan transport.Event) error {
	defer d.inflight.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.inflight.Add(1)
			go func() {
				defer d.inflight.Done()
				d.Handle(ctx, ev)
			}()
		}
	}
}

// Handle routes a single event. Messages are tried as commands; every event
// is also delivered to hooks of its type.
func (d *Dispatcher) Handle(ctx context.Context, ev transport.Event) {
	if ev.Type == transport.EventMessage {
		d.DispatchCommand(ctx, ev)
	}
	d.DispatchEvent(ctx, ev)
}

// Timer is a periodic handler together with its plugin.
type Timer struct {
	Plugin  *plugin.Plugin
	Handler plugin.Handler
}

// Timers returns every registered timer in plugin load order.
func (d *Dispatcher) Timers() []Timer {
	var out []Timer
	for _, p := range d.registry.Plugins() {
		for _, h := range p.Timers() {
			out = append(out, Timer{Plugin: p, Handler: h})
		}
	}
	return out
}

// RunTimer invokes one timer handler with failure isolation.
func (d *Dispatcher) RunTimer(ctx context.Context, t Timer) error {
	return d.invoke(ctx, t.Plugin, kindTimer, "", t.Handler, &plugin.Call{Transport: d.transport})
}

func (d *Dispatcher) invoke(ctx context.Context, p *plugin.Plugin, kind, name string, h plugin.Handler, call *plugin.Call) (err error) {
	logger := d.logger.With("plugin", p.Name(), "kind", kind, "invocation", uuid.NewString())
	if name != "" {
		logger = logger.With("name", name)
	}
	start := time.Now()
	outcome := outcomeOK

	defer func() {
		if r := recover(); r != nil {
			outcome = outcomePanic
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			logger.Error("handler panicked", "panic", r, "stack", string(debug.Stack()))
		}
		d.metrics.observe(kind, p.Name(), name, outcome, time.Since(start))
	}()

	logger.Debug("invoking handler", "room", call.RoomID)
	if err = h.Handle(ctx, call); err != nil {
		outcome = outcomeError
		logger.Error("handler failed", "error", err)
	}
	return err
}
