package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// ConsoleOptions configures a Console transport.
type ConsoleOptions struct {
	Room    string
	Sender  string
	Members []string
}

// Console is a line-oriented transport for local use. Each input line is a
// message in a single room; "/react <event-id> <key>" produces a reaction and
// "/as <sender> <text>" posts as someone else. Outbound messages are printed
// with the event id they were given.
type Console struct {
	in      io.Reader
	out     io.Writer
	room    string
	sender  string
	members []Member

	events chan Event
	done   chan struct{}
	closed atomic.Bool

	mu      sync.Mutex // guards out and entropy
	entropy *rand.Rand
}

// NewConsole returns a console transport reading in and writing out.
func NewConsole(in io.Reader, out io.Writer, opts ConsoleOptions) *Console {
	if opts.Room == "" {
		opts.Room = "console"
	}
	if opts.Sender == "" {
		opts.Sender = "you"
	}
	members := make([]Member, 0, len(opts.Members)+1)
	members = append(members, Member{UserID: opts.Sender, DisplayName: opts.Sender})
	for _, m := range opts.Members {
		m = strings.TrimSpace(m)
		if m != "" {
			members = append(members, Member{UserID: m, DisplayName: m})
		}
	}
	return &Console{
		in:      in,
		out:     out,
		room:    opts.Room,
		sender:  opts.Sender,
		members: members,
		events:  make(chan Event, 100),
		done:    make(chan struct{}),
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Console) newID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), c.entropy).String()
}

// Start begins reading input lines. The events channel closes at end of input.
func (c *Console) Start(ctx context.Context) error {
	go c.readLoop(ctx)
	return nil
}

func (c *Console) readLoop(ctx context.Context) {
	defer close(c.events)
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		ev, ok := c.parseLine(scanner.Text())
		if !ok {
			continue
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Console) parseLine(line string) (Event, bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return Event{}, false
	}
	ev := Event{
		Type:      EventMessage,
		RoomID:    c.room,
		EventID:   c.newID(),
		Sender:    c.sender,
		Body:      line,
		Timestamp: time.Now(),
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "/react":
		if len(fields) < 3 {
			return Event{}, false
		}
		ev.Type = EventReaction
		ev.Body = ""
		ev.RelatesTo = fields[1]
		ev.Key = fields[2]
	case "/as":
		if len(fields) < 3 {
			return Event{}, false
		}
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "/as"))
		_, body, _ := strings.Cut(rest, " ")
		ev.Sender = fields[1]
		ev.Body = strings.TrimSpace(body)
	}
	return ev, true
}

// Events returns the inbound event stream.
func (c *Console) Events() <-chan Event { return c.events }

// Close stops event delivery.
func (c *Console) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.done)
	}
	return nil
}

func (c *Console) SendMessage(ctx context.Context, roomID, text string, notice bool) (string, error) {
	if c.closed.Load() {
		return "", fmt.Errorf("console transport closed")
	}
	id := c.newID()
	kind := "message"
	if notice {
		kind = "notice"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] %s %s:\n%s\n", roomID, kind, id, text)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (c *Console) SetTyping(ctx context.Context, roomID string, active bool, timeout time.Duration) error {
	return nil
}

func (c *Console) RoomMembers(ctx context.Context, roomID string) ([]Member, error) {
	return append([]Member(nil), c.members...), nil
}

func (c *Console) Mention(m Member) string {
	return "@" + m.DisplayName
}
