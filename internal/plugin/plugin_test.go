package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/roombot/internal/config"
	"github.com/rcliao/roombot/internal/store"
	"github.com/rcliao/roombot/internal/transport"
	"github.com/rcliao/roombot/internal/transport/transporttest"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		DataDir:   filepath.Join(dir, "data"),
		ConfigDir: filepath.Join(dir, "config"),
		Backend:   store.BackendFile,
	}
}

func newTestPlugin(t *testing.T, name string) *Plugin {
	t.Helper()
	p, err := New(name, "test", "test plugin", testOptions(t))
	require.NoError(t, err)
	return p
}

func named(name string, calls *[]string) Handler {
	return HandlerFunc(func(ctx context.Context, call *Call) error {
		*calls = append(*calls, name)
		return nil
	})
}

func TestAddCommandDuplicateKeepsFirst(t *testing.T) {
	p := newTestPlugin(t, "ping")
	var calls []string

	assert.True(t, p.AddCommand("ping", named("first", &calls), "first ping"))
	assert.False(t, p.AddCommand("ping", named("second", &calls), "second ping"))

	entry, ok := p.Command("ping")
	require.True(t, ok)
	require.NoError(t, entry.Handler.Handle(context.Background(), &Call{}))
	assert.Equal(t, []string{"first"}, calls)
	assert.Equal(t, "first ping", entry.Help)
	assert.Len(t, p.Commands(), 1)
}

func TestRoomScoping(t *testing.T) {
	p := newTestPlugin(t, "scoped")
	assert.True(t, p.IsValidForRoom("!any"), "no scoped registration means every room")

	p.AddCommand("a", HandlerFunc(nil), "", "!one")
	p.AddHook(transport.EventMessage, HandlerFunc(nil), "!two", "!one")

	assert.True(t, p.IsValidForRoom("!one"))
	assert.True(t, p.IsValidForRoom("!two"))
	assert.False(t, p.IsValidForRoom("!three"))
	assert.Equal(t, []string{"!one", "!two"}, p.Rooms())

	entry, _ := p.Command("a")
	assert.True(t, entry.ValidForRoom("!one"))
	assert.False(t, entry.ValidForRoom("!two"))
	assert.True(t, CommandEntry{}.ValidForRoom("!anything"))
}

func TestHooksKeepRegistrationOrder(t *testing.T) {
	p := newTestPlugin(t, "hooks")
	var calls []string
	p.AddHook("reaction", named("one", &calls))
	p.AddHook("reaction", named("two", &calls))
	p.AddHook("reaction", named("two", &calls))

	hooks := p.Hooks("reaction")
	require.Len(t, hooks, 3)
	for _, h := range hooks {
		require.NoError(t, h.Handler.Handle(context.Background(), &Call{}))
	}
	assert.Equal(t, []string{"one", "two", "two"}, calls)
	assert.Empty(t, p.Hooks("message"))
}

func TestTimersAndHelpTexts(t *testing.T) {
	p := newTestPlugin(t, "misc")
	p.AddTimer(HandlerFunc(nil))
	p.AddCommand("b", HandlerFunc(nil), "does b")
	p.AddCommand("a", HandlerFunc(nil), "does a")

	assert.Len(t, p.Timers(), 1)
	assert.Equal(t, map[string]string{"a": "does a", "b": "does b"}, p.HelpTexts())

	var order []string
	for _, e := range p.Commands() {
		order = append(order, e.Trigger)
	}
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	opts := testOptions(t)
	opts.Backend = "redis"
	_, err := New("x", "", "", opts)
	assert.Error(t, err)
}

func TestPluginConfig(t *testing.T) {
	opts := testOptions(t)
	require.NoError(t, os.MkdirAll(opts.ConfigDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(opts.ConfigDir, "cfg.yaml"), []byte("greeting: hi\n"), 0o644))

	p, err := New("cfg", "", "", opts)
	require.NoError(t, err)

	require.NoError(t, p.AddConfig("greeting", "hello", false))
	assert.Equal(t, "hi", p.ReadConfig("greeting"))

	err = p.AddConfig("foo", nil, true)
	var cfgErr *config.Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "foo", cfgErr.Option)
	assert.Nil(t, p.ReadConfig("foo"))
}

func TestPluginStoreUsesName(t *testing.T) {
	opts := testOptions(t)
	p, err := New("notes", "", "", opts)
	require.NoError(t, err)

	assert.True(t, p.Store().Store("k", "v"))
	assert.FileExists(t, filepath.Join(opts.DataDir, "notes.json"))
}

func TestNewCommandCall(t *testing.T) {
	ev := transport.Event{RoomID: "!room", Sender: "alice"}
	call := NewCommandCall(transporttest.New(), ev, "quote_add  alice\nhi there")

	assert.Equal(t, "quote_add", call.Trigger)
	assert.Equal(t, []string{"alice", "hi", "there"}, call.Args)
	assert.Equal(t, "!room", call.RoomID)
	assert.Equal(t, "alice\nhi there", call.ArgText())

	empty := NewCommandCall(nil, ev, "quote")
	assert.Equal(t, "quote", empty.Trigger)
	assert.Empty(t, empty.Args)
	assert.Equal(t, "", empty.ArgText())
}

func TestMessagingHelpers(t *testing.T) {
	p := newTestPlugin(t, "msg")
	tr := transporttest.New()
	call := &Call{Transport: tr, RoomID: "!room"}
	ctx := context.Background()

	id, ok := p.Reply(ctx, call, "hello", 0)
	require.True(t, ok)
	assert.Equal(t, "$ev1", id)

	_, ok = p.ReplyNotice(ctx, call, "note")
	require.True(t, ok)

	_, ok = p.Message(ctx, tr, "!other", "direct", time.Millisecond)
	require.True(t, ok)

	sent := tr.Sent()
	require.Len(t, sent, 3)
	assert.False(t, sent[0].Notice)
	assert.True(t, sent[1].Notice)
	assert.Equal(t, "!other", sent[2].RoomID)

	typing := tr.Typing()
	require.Len(t, typing, 2)
	assert.True(t, typing[0].Active)
	assert.False(t, typing[1].Active)
}

func TestMessageSendFailure(t *testing.T) {
	p := newTestPlugin(t, "fail")
	tr := transporttest.New()
	tr.FailSends(true)

	id, ok := p.Notice(context.Background(), tr, "!room", "x")
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestTypingDelayCappedAndCancellable(t *testing.T) {
	p := newTestPlugin(t, "typing")
	tr := transporttest.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := p.Message(ctx, tr, "!room", "late", 10*time.Second)
	assert.False(t, ok)
	assert.Empty(t, tr.Sent())

	typing := tr.Typing()
	require.Len(t, typing, 1)
	assert.Equal(t, MaxTypingDelay, typing[0].Timeout)
}
