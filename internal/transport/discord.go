package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/rcliao/roombot/internal/chunker"
	"github.com/rcliao/roombot/internal/logging"
)

// Discord maps a Discord bot session onto Transport. Channels are rooms and
// message reactions become EventReaction events.
type Discord struct {
	session *discordgo.Session
	logger  *slog.Logger

	events chan Event
	done   chan struct{}
	closed atomic.Bool
}

// NewDiscord creates a Discord transport for a bot token. Call Start to connect.
func NewDiscord(token string, logger *slog.Logger) (*Discord, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentGuildMembers |
		discordgo.IntentMessageContent

	d := &Discord{
		session: session,
		logger:  logger.With("transport", "discord"),
		events:  make(chan Event, 100),
		done:    make(chan struct{}),
	}
	session.AddHandler(d.onMessageCreate)
	session.AddHandler(d.onReactionAdd)
	return d, nil
}

// Start opens the gateway connection. The session is closed when ctx ends.
func (d *Discord) Start(ctx context.Context) error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	go func() {
		select {
		case <-ctx.Done():
			d.Close()
		case <-d.done:
		}
	}()
	return nil
}

func (d *Discord) Events() <-chan Event { return d.events }

func (d *Discord) Close() error {
	if d.closed.CompareAndSwap(false, true) {
		close(d.done)
		return d.session.Close()
	}
	return nil
}

func (d *Discord) botID() string {
	if d.session.State == nil || d.session.State.User == nil {
		return ""
	}
	return d.session.State.User.ID
}

func (d *Discord) publish(ev Event) {
	select {
	case d.events <- ev:
	case <-d.done:
	default:
		d.logger.Warn("event buffer full, dropping event", "type", ev.Type, "room", ev.RoomID)
	}
}

func (d *Discord) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if ev, ok := messageEvent(m, d.botID()); ok {
		d.publish(ev)
	}
}

func (d *Discord) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if ev, ok := reactionEvent(r, d.botID()); ok {
		d.publish(ev)
	}
}

func messageEvent(m *discordgo.MessageCreate, botID string) (Event, bool) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.ID == botID {
		return Event{}, false
	}
	return Event{
		Type:      EventMessage,
		RoomID:    m.ChannelID,
		EventID:   m.ID,
		Sender:    m.Author.ID,
		Body:      m.Content,
		Timestamp: m.Timestamp,
	}, true
}

func reactionEvent(r *discordgo.MessageReactionAdd, botID string) (Event, bool) {
	if r == nil || r.MessageReaction == nil || r.UserID == botID {
		return Event{}, false
	}
	return Event{
		Type:      EventReaction,
		RoomID:    r.ChannelID,
		Sender:    r.UserID,
		RelatesTo: r.MessageID,
		Key:       r.Emoji.Name,
		Timestamp: time.Now(),
	}, true
}

func (d *Discord) SendMessage(ctx context.Context, roomID, text string, notice bool) (string, error) {
	var first string
	for _, piece := range chunker.Split(text, chunker.DiscordLimit) {
		send := &discordgo.MessageSend{Content: piece}
		if notice {
			// Notices never ping.
			send.AllowedMentions = &discordgo.MessageAllowedMentions{}
		}
		msg, err := d.session.ChannelMessageSendComplex(roomID, send, discordgo.WithContext(ctx))
		if err != nil {
			return first, fmt.Errorf("send discord message: %w", err)
		}
		if first == "" {
			first = msg.ID
		}
	}
	return first, nil
}

// SetTyping triggers the typing indicator. Discord clears it on the next
// message, so turning it off is a no-op.
func (d *Discord) SetTyping(ctx context.Context, roomID string, active bool, timeout time.Duration) error {
	if !active {
		return nil
	}
	return d.session.ChannelTyping(roomID, discordgo.WithContext(ctx))
}

func (d *Discord) RoomMembers(ctx context.Context, roomID string) ([]Member, error) {
	ch, err := d.session.State.Channel(roomID)
	if err != nil {
		ch, err = d.session.Channel(roomID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("resolve channel %s: %w", roomID, err)
		}
	}
	members, err := d.session.GuildMembers(ch.GuildID, "", 1000, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list guild members: %w", err)
	}
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if mem, ok := memberFrom(m); ok {
			out = append(out, mem)
		}
	}
	return out, nil
}

func memberFrom(m *discordgo.Member) (Member, bool) {
	if m == nil || m.User == nil {
		return Member{}, false
	}
	name := m.Nick
	if name == "" {
		name = m.User.GlobalName
	}
	if name == "" {
		name = m.User.Username
	}
	return Member{UserID: m.User.ID, DisplayName: name}, true
}

func (d *Discord) Mention(m Member) string {
	return "<@" + m.UserID + ">"
}
