// Package plugin defines plugin descriptors, their command/hook/timer
// registrations and the process-wide plugin registry.
package plugin

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rcliao/roombot/internal/config"
	"github.com/rcliao/roombot/internal/logging"
	"github.com/rcliao/roombot/internal/store"
)

// Options locate a plugin's record store and configuration file.
type Options struct {
	DataDir   string
	ConfigDir string
	Backend   string
	Logger    *slog.Logger
}

// CommandEntry binds a trigger to a handler.
type CommandEntry struct {
	Trigger string
	Handler Handler
	Help    string
	Rooms   []string
}

// ValidForRoom reports whether the entry applies in room. No rooms means all rooms.
func (e CommandEntry) ValidForRoom(room string) bool {
	return len(e.Rooms) == 0 || slices.Contains(e.Rooms, room)
}

// HookEntry binds an event type to a handler.
type HookEntry struct {
	EventType string
	Handler   Handler
	Rooms     []string
}

// ValidForRoom reports whether the hook applies in room.
func (e HookEntry) ValidForRoom(room string) bool {
	return len(e.Rooms) == 0 || slices.Contains(e.Rooms, room)
}

// Plugin is the unit of registration. It owns one record store and one
// configuration resolver.
type Plugin struct {
	name        string
	category    string
	description string
	logger      *slog.Logger
	store       *store.Store
	config      *config.Resolver

	mu       sync.RWMutex
	commands map[string]CommandEntry
	order    []string
	hooks    map[string][]HookEntry
	timers   []Handler
	rooms    []string
}

// New creates a plugin descriptor, loading its records from
// <DataDir>/<name> and its configuration from <ConfigDir>/<name>.yaml.
func New(name, category, description string, opts Options) (*Plugin, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("plugin", name)

	backend, err := store.OpenBackend(opts.Backend, opts.DataDir, name)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}

	return &Plugin{
		name:        name,
		category:    category,
		description: description,
		logger:      logger,
		store:       store.New(backend, logger),
		config:      config.NewResolver(name, filepath.Join(opts.ConfigDir, name+".yaml"), logger),
		commands:    make(map[string]CommandEntry),
		hooks:       make(map[string][]HookEntry),
	}, nil
}

// Name returns the plugin name, which also names its record and config files.
func (p *Plugin) Name() string { return p.name }

// Category groups the plugin in help output.
func (p *Plugin) Category() string { return p.category }

// Description is a one-line summary of the plugin.
func (p *Plugin) Description() string { return p.description }

// Logger returns the plugin's logger, tagged with its name.
func (p *Plugin) Logger() *slog.Logger { return p.logger }

// Store returns the plugin's record store.
func (p *Plugin) Store() *store.Store { return p.store }

// Config returns the plugin's option resolver.
func (p *Plugin) Config() *config.Resolver { return p.config }

// AddCommand registers trigger. A trigger already registered on this plugin
// is rejected and the first registration stays active.
func (p *Plugin) AddCommand(trigger string, h Handler, help string, rooms ...string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.commands[trigger]; ok {
		p.logger.Error("command already exists", "command", trigger)
		return false
	}
	p.commands[trigger] = CommandEntry{Trigger: trigger, Handler: h, Help: help, Rooms: slices.Clone(rooms)}
	p.order = append(p.order, trigger)
	p.addRooms(rooms)
	p.logger.Debug("added command", "command", trigger, "rooms", rooms)
	return true
}

// AddHook registers h for eventType. Hooks run in registration order.
func (p *Plugin) AddHook(eventType string, h Handler, rooms ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.hooks[eventType] = append(p.hooks[eventType], HookEntry{EventType: eventType, Handler: h, Rooms: slices.Clone(rooms)})
	p.addRooms(rooms)
	p.logger.Debug("added hook", "event_type", eventType, "rooms", rooms)
}

// AddTimer registers a periodic handler.
func (p *Plugin) AddTimer(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timers = append(p.timers, h)
}

// addRooms must be called with mu held.
func (p *Plugin) addRooms(rooms []string) {
	for _, room := range rooms {
		if !slices.Contains(p.rooms, room) {
			p.rooms = append(p.rooms, room)
		}
	}
}

// IsValidForRoom reports whether any registration of the plugin may apply in
// room. A plugin without scoped registrations is valid everywhere.
func (p *Plugin) IsValidForRoom(room string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms) == 0 || slices.Contains(p.rooms, room)
}

// Rooms returns the union of all room scopes attached so far.
func (p *Plugin) Rooms() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.rooms)
}

// Command looks up a trigger.
func (p *Plugin) Command(trigger string) (CommandEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.commands[trigger]
	return e, ok
}

// Commands returns the command entries in registration order.
func (p *Plugin) Commands() []CommandEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]CommandEntry, 0, len(p.order))
	for _, trigger := range p.order {
		out = append(out, p.commands[trigger])
	}
	return out
}

// HelpTexts maps each trigger to its help text.
func (p *Plugin) HelpTexts() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]string, len(p.commands))
	for trigger, e := range p.commands {
		out[trigger] = e.Help
	}
	return out
}

// Hooks returns the hooks for eventType in registration order.
func (p *Plugin) Hooks(eventType string) []HookEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.hooks[eventType])
}

// Timers returns the periodic handlers.
func (p *Plugin) Timers() []Handler {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.timers)
}

// AddConfig declares a configuration option. See config.Resolver.Declare.
func (p *Plugin) AddConfig(option string, def any, required bool) error {
	return p.config.Declare(option, def, required)
}

// ReadConfig returns the resolved value of option, or nil.
func (p *Plugin) ReadConfig(option string) any {
	return p.config.Value(option)
}
