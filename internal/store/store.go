// Package store provides the per-plugin persistent record store.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rcliao/roombot/internal/logging"
)

// Backend kinds accepted by OpenBackend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Backend persists the complete entry map of one plugin.
type Backend interface {
	// Load returns the persisted entries. It returns an error wrapping
	// fs.ErrNotExist when nothing has been persisted yet.
	Load() (map[string]json.RawMessage, error)

	// Save atomically replaces the persisted entries.
	Save(entries map[string]json.RawMessage) error

	// Remove deletes the backing file. Removing an absent file is not an error.
	Remove() error

	// Path returns the backing file location.
	Path() string
}

// OpenBackend returns the backend of the given kind for plugin name, rooted at dir.
func OpenBackend(kind, dir, name string) (Backend, error) {
	if name == "" {
		return nil, fmt.Errorf("open backend: empty plugin name")
	}
	switch kind {
	case "", BackendFile:
		return NewFileBackend(filepath.Join(dir, name+".json"), name), nil
	case BackendSQLite:
		return NewSQLiteBackend(filepath.Join(dir, name+".db")), nil
	default:
		return nil, fmt.Errorf("open backend: unknown kind %q (valid: file, sqlite)", kind)
	}
}

// Store is an in-memory key/value map mirrored to a Backend. The backing file
// exists iff the map is non-empty.
type Store struct {
	backend Backend
	logger  *slog.Logger

	scope sync.Mutex // held by WithLock

	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// New creates a store over backend and loads its current contents.
func New(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Store{
		backend: backend,
		logger:  logger.With("file", backend.Path()),
	}
	s.data = s.Load()
	return s
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.backend.Path()
}

// Load reads the backing file. A missing file yields an empty map; any other
// failure is logged and also yields an empty map.
func (s *Store) Load() map[string]json.RawMessage {
	entries, err := s.backend.Load()
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("record file not found, store will be empty")
		return map[string]json.RawMessage{}
	}
	if err != nil {
		logging.Critical(s.logger, "could not load records", "error", err)
		return map[string]json.RawMessage{}
	}
	if entries == nil {
		entries = map[string]json.RawMessage{}
	}
	return entries
}

// Store sets key to value and persists the map. It reports whether the value
// reached disk.
func (s *Store) Store(key string, value any) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("could not encode record", "key", key, "error", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return s.save()
}

// StoreAll sets every key in values and persists the map with a single write.
func (s *Store) StoreAll(values map[string]any) bool {
	encoded := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			s.logger.Error("could not encode record", "key", key, "error", err)
			return false
		}
		encoded[key] = raw
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, raw := range encoded {
		s.data[key] = raw
	}
	return s.save()
}

// Read decodes the value stored under key into dst. It reports false when the
// key is absent.
func (s *Store) Read(key string, dst any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// Clear removes key and persists the map. It returns false when the key was
// absent or the change could not be written.
func (s *Store) Clear(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return false
	}
	delete(s.data, key)
	return s.save()
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Export returns a copy of the raw entries.
func (s *Store) Export() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(s.data))
	for k, v := range s.data {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// WithLock runs fn while holding the store's mutation scope. Read-modify-write
// sequences must run inside it so concurrent handlers of the same plugin do not
// lose each other's updates.
func (s *Store) WithLock(fn func()) {
	s.scope.Lock()
	defer s.scope.Unlock()
	fn()
}

// save must be called with mu held.
func (s *Store) save() bool {
	if len(s.data) == 0 {
		if err := s.backend.Remove(); err != nil {
			logging.Critical(s.logger, "could not remove record file", "error", err)
			return false
		}
		return true
	}
	if err := s.backend.Save(s.data); err != nil {
		logging.Critical(s.logger, "could not write records", "error", err)
		return false
	}
	return true
}
