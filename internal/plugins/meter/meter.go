// Package meter measures how much of something someone is, at random.
package meter

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rcliao/roombot/internal/plugin"
)

// Name is the plugin name.
const Name = "meter"

const optTypingDelay = "typing_delay"

// MaxLevel is the top of the gauge.
const MaxLevel = 10

type service struct {
	plugin *plugin.Plugin
	delay  time.Duration
	intn   func(n int) int
}

// New loads the meter plugin. It satisfies plugin.Loader.
func New(opts plugin.Options) (*plugin.Plugin, error) {
	s, err := newService(opts)
	if err != nil {
		return nil, err
	}
	return s.plugin, nil
}

func newService(opts plugin.Options) (*service, error) {
	p, err := plugin.New(Name, "General", "Plugin to provide a simple, randomized meter", opts)
	if err != nil {
		return nil, err
	}
	if err := p.AddConfig(optTypingDelay, 500*time.Millisecond, false); err != nil {
		return nil, err
	}

	s := &service{plugin: p, delay: p.Config().Duration(optTypingDelay), intn: rand.IntN}
	p.AddCommand("meter", plugin.HandlerFunc(s.meter), "accurately measure someones somethingness")
	return s, nil
}

func (s *service) meter(ctx context.Context, call *plugin.Call) error {
	if len(call.Args) < 2 {
		s.plugin.Reply(ctx, call, "Usage: meter <target> <condition>", 0)
		return nil
	}
	target := call.Args[0]
	condition := strings.Join(call.Args[1:], " ")
	if link, ok := s.plugin.LinkUser(ctx, call, target, plugin.Loose, plugin.DefaultFuzziness); ok {
		target = link
	}

	level := s.intn(MaxLevel + 1)
	text := fmt.Sprintf("%s-o-Meter %s %d/%d %s is %s",
		strings.ReplaceAll(condition, " ", "-"), Gauge(level), level, MaxLevel, target, Comment(level, target, condition))
	s.plugin.Reply(ctx, call, text, s.delay)
	return nil
}

// Gauge draws level filled blocks out of MaxLevel.
func Gauge(level int) string {
	level = max(0, min(level, MaxLevel))
	return "▐" + strings.Repeat("█", level) + strings.Repeat("░", MaxLevel-level) + "▌"
}

// Comment describes level in words.
func Comment(level int, target, condition string) string {
	switch level {
	case 0:
		return "never " + condition
	case 1:
		return "just barely " + condition
	case 2:
		return "kinda " + condition
	case 3:
		return "a bit " + condition
	case 4:
		return "sorta " + condition
	case 5:
		return "basic average " + condition
	case 6:
		return condition
	case 7:
		return "fairly " + condition
	case 8:
		return "pretty darn " + condition
	case 9:
		return "extremely " + condition
	default:
		return fmt.Sprintf("the %sest of all! %s scores a perfect 10 on the %s-o-meter!! I bow to %s's %sness...",
			condition, target, strings.ReplaceAll(condition, " ", "-"), target, condition)
	}
}
