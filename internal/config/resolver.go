package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/roombot/internal/logging"
)

var (
	// ErrDuplicateOption is returned when an option is declared twice.
	ErrDuplicateOption = errors.New("configuration option already declared")

	// ErrMissingOption is wrapped by *Error.
	ErrMissingOption = errors.New("missing required configuration")

	// ErrInvalidSettings reports unusable process settings.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Error reports a required option that has neither a file value nor a default.
// It aborts loading of the plugin that declared it.
type Error struct {
	Plugin string
	Option string
}

func (e *Error) Error() string {
	return fmt.Sprintf("required configuration item %s for plugin %s could not be found", e.Option, e.Plugin)
}

func (e *Error) Unwrap() error { return ErrMissingOption }

// Resolver resolves a plugin's declared options against its YAML file.
// Resolution order is file value, then default, then nil for optional options.
type Resolver struct {
	plugin string
	path   string
	logger *slog.Logger

	file map[string]any

	mu     sync.RWMutex
	values map[string]any
}

// NewResolver parses the YAML file at path. A missing or unreadable file
// leaves the file layer empty.
func NewResolver(plugin, path string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	r := &Resolver{
		plugin: plugin,
		path:   path,
		logger: logger,
		values: make(map[string]any),
	}
	r.file = r.loadFile()
	return r
}

func (r *Resolver) loadFile() map[string]any {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}
	}
	if err != nil {
		r.logger.Info("could not read plugin configuration", "file", r.path, "error", err)
		return map[string]any{}
	}
	var file map[string]any
	if err := yaml.Unmarshal(data, &file); err != nil {
		r.logger.Info("could not parse plugin configuration", "file", r.path, "error", err)
		return map[string]any{}
	}
	if file == nil {
		file = map[string]any{}
	}
	return file
}

// Path returns the configuration file location.
func (r *Resolver) Path() string { return r.path }

// Declare registers option and resolves its value. Declaring an option twice
// returns ErrDuplicateOption and keeps the first value.
func (r *Resolver) Declare(option string, def any, required bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.values[option]; ok {
		r.logger.Warn("configuration item has been defined already", "option", option)
		return fmt.Errorf("%s: %w", option, ErrDuplicateOption)
	}

	switch v, ok := r.file[option]; {
	case ok && v != nil:
		r.values[option] = v
	case def != nil:
		r.values[option] = def
	case !required:
		r.values[option] = nil
	default:
		err := &Error{Plugin: r.plugin, Option: option}
		r.logger.Warn(err.Error())
		return err
	}
	return nil
}

// Value returns the resolved value of option, or nil.
func (r *Resolver) Value(option string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[option]
}

// String returns option as a string, or "" when unset or not a string.
func (r *Resolver) String(option string) string {
	s, _ := r.Value(option).(string)
	return s
}

// Int returns option as an int, or 0.
func (r *Resolver) Int(option string) int {
	switch v := r.Value(option).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Bool returns option as a bool, or false.
func (r *Resolver) Bool(option string) bool {
	b, _ := r.Value(option).(bool)
	return b
}

// Duration parses option as a Go duration string ("30s", "5m"). Bare numbers
// are milliseconds.
func (r *Resolver) Duration(option string) time.Duration {
	switch v := r.Value(option).(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Millisecond
	case int64:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v * float64(time.Millisecond))
	case string:
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
		r.logger.Warn("invalid duration", "option", option, "value", v, "error", err)
	}
	return 0
}

// Strings returns option as a string slice. A single string becomes a
// one-element slice.
func (r *Resolver) Strings(option string) []string {
	switch v := r.Value(option).(type) {
	case []string:
		return append([]string(nil), v...)
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
