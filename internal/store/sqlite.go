package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps a plugin's records in a single SQLite database file.
// Each Save replaces the entries table inside one transaction, and the rollback
// journal makes the replacement atomic across crashes.
type SQLiteBackend struct {
	path string
}

// NewSQLiteBackend returns a SQLite backend at dbPath.
func NewSQLiteBackend(dbPath string) *SQLiteBackend {
	return &SQLiteBackend{path: dbPath}
}

func (b *SQLiteBackend) Path() string { return b.path }

func (b *SQLiteBackend) open() (*sql.DB, error) {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", b.path+"?_pragma=journal_mode(delete)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS entries (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

func (b *SQLiteBackend) Load() (map[string]json.RawMessage, error) {
	// Opening a missing database would create it.
	if _, err := os.Stat(b.path); err != nil {
		return nil, err
	}

	db, err := b.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var format string
	err = db.QueryRow(`SELECT value FROM meta WHERE key = 'format'`).Scan(&format)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load records: %w", fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("read format: %w", err)
	}
	if v, err := strconv.Atoi(format); err != nil || v < 1 || v > FormatVersion {
		return nil, fmt.Errorf("load records: unsupported format %q", format)
	}

	rows, err := db.Query(`SELECT key, value FROM entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := map[string]json.RawMessage{}
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		entries[key] = json.RawMessage(value)
	}
	return entries, rows.Err()
}

func (b *SQLiteBackend) Save(entries map[string]json.RawMessage) error {
	db, err := b.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	for key, value := range entries {
		if _, err := tx.Exec(`INSERT INTO entries (key, value) VALUES (?, ?)`, key, []byte(value)); err != nil {
			return fmt.Errorf("insert %s: %w", key, err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO meta (key, value) VALUES ('format', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(FormatVersion)); err != nil {
		return fmt.Errorf("write format: %w", err)
	}
	return tx.Commit()
}

func (b *SQLiteBackend) Remove() error {
	for _, p := range []string{b.path, b.path + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
