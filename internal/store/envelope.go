package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// FormatVersion is the record file format written by this build.
const FormatVersion = 1

type envelope struct {
	Format  int                        `json:"format"`
	Plugin  string                     `json:"plugin"`
	SavedAt time.Time                  `json:"saved_at"`
	Entries map[string]json.RawMessage `json:"entries"`
}

func encodeEnvelope(plugin string, entries map[string]json.RawMessage) ([]byte, error) {
	return json.Marshal(envelope{
		Format:  FormatVersion,
		Plugin:  plugin,
		SavedAt: time.Now().UTC(),
		Entries: entries,
	})
}

func decodeEnvelope(b []byte) (map[string]json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode record file: %w", err)
	}
	if env.Format < 1 || env.Format > FormatVersion {
		return nil, fmt.Errorf("decode record file: unsupported format %d", env.Format)
	}
	return env.Entries, nil
}
