package plugin

import (
	"context"
	"time"

	"github.com/rcliao/roombot/internal/transport"
)

// MaxTypingDelay caps the typing indicator shown before a message.
const MaxTypingDelay = 1000 * time.Millisecond

// Message sends text to roomID, optionally showing a typing indicator for
// delay first. It returns the event id of the sent message.
func (p *Plugin) Message(ctx context.Context, tr transport.Transport, roomID, text string, delay time.Duration) (string, bool) {
	return p.send(ctx, tr, roomID, text, false, delay)
}

// Notice sends text as a notice.
func (p *Plugin) Notice(ctx context.Context, tr transport.Transport, roomID, text string) (string, bool) {
	return p.send(ctx, tr, roomID, text, true, 0)
}

// Reply sends text to the room the call originated from.
func (p *Plugin) Reply(ctx context.Context, call *Call, text string, delay time.Duration) (string, bool) {
	return p.send(ctx, call.Transport, call.RoomID, text, false, delay)
}

// ReplyNotice sends a notice to the room the call originated from.
func (p *Plugin) ReplyNotice(ctx context.Context, call *Call, text string) (string, bool) {
	return p.send(ctx, call.Transport, call.RoomID, text, true, 0)
}

func (p *Plugin) send(ctx context.Context, tr transport.Transport, roomID, text string, notice bool, delay time.Duration) (string, bool) {
	if delay > 0 {
		if delay > MaxTypingDelay {
			delay = MaxTypingDelay
		}
		if err := p.typing(ctx, tr, roomID, delay); err != nil {
			p.logger.Debug("message aborted while typing", "room", roomID, "error", err)
			return "", false
		}
	}

	eventID, err := tr.SendMessage(ctx, roomID, text, notice)
	if err != nil {
		p.logger.Error("failed to send message", "room", roomID, "notice", notice, "error", err)
		return "", false
	}
	return eventID, true
}

func (p *Plugin) typing(ctx context.Context, tr transport.Transport, roomID string, delay time.Duration) error {
	if err := tr.SetTyping(ctx, roomID, true, delay); err != nil {
		p.logger.Debug("typing indicator failed", "room", roomID, "error", err)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if err := tr.SetTyping(ctx, roomID, false, 0); err != nil {
		p.logger.Debug("typing indicator failed", "room", roomID, "error", err)
	}
	return nil
}
