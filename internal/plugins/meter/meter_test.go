package meter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/roombot/internal/plugin"
	"github.com/rcliao/roombot/internal/store"
	"github.com/rcliao/roombot/internal/transport"
	"github.com/rcliao/roombot/internal/transport/transporttest"
)

func newTestService(t *testing.T, level int) *service {
	t.Helper()
	dir := t.TempDir()
	s, err := newService(plugin.Options{
		DataDir:   filepath.Join(dir, "data"),
		ConfigDir: filepath.Join(dir, "config"),
		Backend:   store.BackendFile,
	})
	require.NoError(t, err)
	s.delay = time.Millisecond
	s.intn = func(n int) int { return level }
	return s
}

func run(t *testing.T, s *service, tr *transporttest.Transport, text string) {
	t.Helper()
	call := plugin.NewCommandCall(tr, transport.Event{Type: transport.EventMessage, RoomID: "!room", Body: "!" + text}, text)
	entry, ok := s.plugin.Command(call.Trigger)
	require.True(t, ok)
	require.NoError(t, entry.Handler.Handle(context.Background(), call))
}

func TestMeter(t *testing.T) {
	s := newTestService(t, 3)
	tr := transporttest.New()
	run(t, s, tr, "meter bob very cool")

	assert.Equal(t, "very-cool-o-Meter ▐███░░░░░░░▌ 3/10 bob is a bit very cool", tr.Last().Text)
	assert.False(t, tr.Last().Notice)
	assert.NotEmpty(t, tr.Typing())
}

func TestMeterLinksKnownTarget(t *testing.T) {
	s := newTestService(t, 6)
	tr := transporttest.New(transport.Member{UserID: "@bob:example.org", DisplayName: "Bob"})
	run(t, s, tr, "meter bob smart")

	assert.Equal(t, "smart-o-Meter ▐██████░░░░▌ 6/10 [Bob](@bob:example.org) is smart", tr.Last().Text)
}

func TestMeterUsage(t *testing.T) {
	s := newTestService(t, 0)
	tr := transporttest.New()
	run(t, s, tr, "meter bob")
	assert.Equal(t, "Usage: meter <target> <condition>", tr.Last().Text)
}

func TestGauge(t *testing.T) {
	assert.Equal(t, "▐░░░░░░░░░░▌", Gauge(0))
	assert.Equal(t, "▐██████████▌", Gauge(10))
	assert.Equal(t, Gauge(10), Gauge(42))
	assert.Equal(t, Gauge(0), Gauge(-1))
}

func TestCommentPerfectScore(t *testing.T) {
	assert.Equal(t,
		"the coolest of all! bob scores a perfect 10 on the cool-o-meter!! I bow to bob's coolness...",
		Comment(10, "bob", "cool"))
	assert.Equal(t, "never cool", Comment(0, "bob", "cool"))
}
