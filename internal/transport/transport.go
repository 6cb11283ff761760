// Package transport defines the narrow chat transport the bot talks through,
// plus console and Discord implementations.
package transport

import (
	"context"
	"time"
)

// Event types the dispatcher understands. Transports map their native events
// onto these.
const (
	EventMessage  = "message"
	EventReaction = "reaction"
)

// Event is an inbound protocol event reduced to the fields plugins use.
type Event struct {
	Type    string
	RoomID  string
	EventID string
	Sender  string
	Body    string

	// RelatesTo and Key are set on reactions: the annotated event and the
	// reaction symbol.
	RelatesTo string
	Key       string

	Timestamp time.Time
}

// Member is a joined member of a room.
type Member struct {
	UserID      string
	DisplayName string
}

// Transport sends messages and answers room membership queries.
type Transport interface {
	// SendMessage posts text to room and returns the new event id. Notices are
	// messages that should not ping anyone.
	SendMessage(ctx context.Context, roomID, text string, notice bool) (string, error)

	// SetTyping toggles the typing indicator in room.
	SetTyping(ctx context.Context, roomID string, active bool, timeout time.Duration) error

	// RoomMembers lists the joined members of room.
	RoomMembers(ctx context.Context, roomID string) ([]Member, error)

	// Mention renders a link or mention for m in the transport's markup.
	Mention(m Member) string
}

// Source delivers inbound events until Close is called or ctx ends.
type Source interface {
	Start(ctx context.Context) error
	Events() <-chan Event
	Close() error
}

// Client is a transport that also produces events.
type Client interface {
	Transport
	Source
}
