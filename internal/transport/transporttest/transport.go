// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rcliao/roombot/internal/transport"
)

// ErrSendFailed is returned by SendMessage when FailSends is set.
var ErrSendFailed = errors.New("send failed")

// Sent records one outbound message.
type Sent struct {
	RoomID  string
	Text    string
	Notice  bool
	EventID string
}

// Typing records one SetTyping call.
type Typing struct {
	RoomID  string
	Active  bool
	Timeout time.Duration
}

// Transport records everything sent through it.
type Transport struct {
	mu        sync.Mutex
	members   []transport.Member
	sent      []Sent
	typing    []Typing
	next      int
	failSends bool
}

// New returns a transport whose rooms all contain members.
func New(members ...transport.Member) *Transport {
	return &Transport{members: members}
}

// FailSends makes subsequent sends fail.
func (t *Transport) FailSends(fail bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failSends = fail
}

func (t *Transport) SendMessage(ctx context.Context, roomID, text string, notice bool) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failSends {
		return "", ErrSendFailed
	}
	t.next++
	id := fmt.Sprintf("$ev%d", t.next)
	t.sent = append(t.sent, Sent{RoomID: roomID, Text: text, Notice: notice, EventID: id})
	return id, nil
}

func (t *Transport) SetTyping(ctx context.Context, roomID string, active bool, timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.typing = append(t.typing, Typing{RoomID: roomID, Active: active, Timeout: timeout})
	return nil
}

func (t *Transport) RoomMembers(ctx context.Context, roomID string) ([]transport.Member, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]transport.Member(nil), t.members...), nil
}

func (t *Transport) Mention(m transport.Member) string {
	return "[" + m.DisplayName + "](" + m.UserID + ")"
}

// Sent returns a copy of the outbound messages so far.
func (t *Transport) Sent() []Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sent(nil), t.sent...)
}

// Last returns the most recent outbound message, or the zero value.
func (t *Transport) Last() Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sent) == 0 {
		return Sent{}
	}
	return t.sent[len(t.sent)-1]
}

// Typing returns the recorded typing calls.
func (t *Transport) Typing() []Typing {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Typing(nil), t.typing...)
}

// Reset forgets recorded calls.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
	t.typing = nil
}
