// Package help lists the commands available in a room.
package help

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/roombot/internal/plugin"
)

// Name is the plugin name.
const Name = "help"

// New returns a loader for the help plugin. It describes the plugins held by
// registry, including itself once registered.
func New(registry *plugin.Registry, prefix string) plugin.Loader {
	return func(opts plugin.Options) (*plugin.Plugin, error) {
		p, err := plugin.New(Name, "Core", "List available commands and their usage", opts)
		if err != nil {
			return nil, err
		}
		h := &handler{plugin: p, registry: registry, prefix: prefix}
		p.AddCommand("help", plugin.HandlerFunc(h.help), "Show available commands, or the help text of one command: help [command]")
		return p, nil
	}
}

type handler struct {
	plugin   *plugin.Plugin
	registry *plugin.Registry
	prefix   string
}

func (h *handler) help(ctx context.Context, call *plugin.Call) error {
	if len(call.Args) > 0 {
		h.plugin.ReplyNotice(ctx, call, h.commandHelp(call.RoomID, strings.TrimPrefix(call.Args[0], h.prefix)))
		return nil
	}
	h.plugin.ReplyNotice(ctx, call, h.overview(call.RoomID))
	return nil
}

func (h *handler) commandHelp(room, trigger string) string {
	for _, p := range h.registry.ForRoom(room) {
		entry, ok := p.Command(trigger)
		if !ok || !entry.ValidForRoom(room) {
			continue
		}
		if text := p.HelpTexts()[trigger]; text != "" {
			return fmt.Sprintf("%s%s: %s", h.prefix, trigger, text)
		}
		return fmt.Sprintf("%s%s: no help available", h.prefix, trigger)
	}
	return fmt.Sprintf("Unknown command %s", trigger)
}

func (h *handler) overview(room string) string {
	var b strings.Builder
	b.WriteString("Available commands:")
	for _, p := range h.registry.ForRoom(room) {
		var triggers []string
		for _, c := range p.Commands() {
			if c.ValidForRoom(room) {
				triggers = append(triggers, h.prefix+c.Trigger)
			}
		}
		if len(triggers) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%s): %s\n  %s", p.Name(), p.Category(), p.Description(), strings.Join(triggers, " "))
	}
	return b.String()
}
