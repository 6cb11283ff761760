package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rcliao/roombot/internal/logging"
)

// ErrDuplicatePlugin is returned when a plugin name is registered twice.
var ErrDuplicatePlugin = errors.New("plugin already registered")

// Loader constructs a plugin and registers its commands, hooks and timers.
type Loader func(opts Options) (*Plugin, error)

// Registry owns the loaded plugins in load order.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	plugins []*Plugin
	byName  map[string]*Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Registry{logger: logger, byName: make(map[string]*Plugin)}
}

// Register adds p after the plugins already loaded.
func (r *Registry) Register(p *Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[p.Name()]; ok {
		return fmt.Errorf("%s: %w", p.Name(), ErrDuplicatePlugin)
	}
	r.plugins = append(r.plugins, p)
	r.byName[p.Name()] = p
	r.logger.Info("loaded plugin", "plugin", p.Name(), "category", p.Category())
	return nil
}

// Load runs each loader and registers the result. A loader that fails only
// removes its own plugin; the errors are returned for reporting.
func (r *Registry) Load(opts Options, loaders ...Loader) []error {
	var errs []error
	for _, load := range loaders {
		p, err := load(opts)
		if err != nil {
			r.logger.Error("could not load plugin", "error", err)
			errs = append(errs, err)
			continue
		}
		if err := r.Register(p); err != nil {
			r.logger.Error("could not register plugin", "error", err)
			errs = append(errs, err)
		}
	}
	return errs
}

// Plugins returns the plugins in load order.
func (r *Registry) Plugins() []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// Plugin looks a plugin up by name.
func (r *Registry) Plugin(name string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// ForRoom returns the plugins applicable to room, in load order.
func (r *Registry) ForRoom(room string) []*Plugin {
	var out []*Plugin
	for _, p := range r.Plugins() {
		if p.IsValidForRoom(room) {
			out = append(out, p)
		}
	}
	return out
}
