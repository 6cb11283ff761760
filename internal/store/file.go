package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend keeps a plugin's records in a single JSON file. Writes go to a
// temporary file in the same directory which is synced and renamed into place,
// so a crash leaves either the old or the new file, never a partial one.
type FileBackend struct {
	path   string
	plugin string
}

// NewFileBackend returns a file backend writing to path.
func NewFileBackend(path, plugin string) *FileBackend {
	return &FileBackend{path: path, plugin: plugin}
}

func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) Load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(data)
}

func (b *FileBackend) Save(entries map[string]json.RawMessage) error {
	data, err := encodeEnvelope(b.plugin, entries)
	if err != nil {
		return err
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(b.path)+"-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path)
}

func (b *FileBackend) Remove() error {
	err := os.Remove(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
