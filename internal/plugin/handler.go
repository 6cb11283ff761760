package plugin

import (
	"context"
	"strings"

	"github.com/rcliao/roombot/internal/transport"
)

// Handler runs a command, hook or timer.
type Handler interface {
	Handle(ctx context.Context, call *Call) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, call *Call) error

func (f HandlerFunc) Handle(ctx context.Context, call *Call) error {
	return f(ctx, call)
}

// Call is what a handler receives. Commands get Trigger, Args and Command set;
// hooks get Event; timers only get Transport.
type Call struct {
	Transport transport.Transport
	Event     transport.Event
	RoomID    string

	// Command is the message text with the command prefix removed.
	Command string
	Trigger string
	Args    []string
}

// NewCommandCall splits text (prefix already removed) into trigger and
// argument tokens.
func NewCommandCall(tr transport.Transport, ev transport.Event, text string) *Call {
	fields := strings.Fields(text)
	call := &Call{
		Transport: tr,
		Event:     ev,
		RoomID:    ev.RoomID,
		Command:   text,
	}
	if len(fields) > 0 {
		call.Trigger = fields[0]
		call.Args = fields[1:]
	}
	return call
}

// ArgText returns the raw text after the trigger, line breaks included.
func (c *Call) ArgText() string {
	s := strings.TrimLeft(c.Command, " \t\r\n")
	idx := strings.IndexAny(s, " \t\r\n")
	if idx < 0 {
		return ""
	}
	return strings.TrimLeft(s[idx:], " \t\r\n")
}
