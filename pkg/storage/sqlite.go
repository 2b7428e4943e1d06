package storage

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore is a durable Storage backed by SQLite, for native hosts that
// want the device and user ids to survive process restarts.
// Only opening the database can fail; afterwards failures read as absence.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (or creates) a store at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get implements Storage.
func (s *SQLiteStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		// sql.ErrNoRows and driver failures both read as absence.
		return "", false
	}
	return value, true
}

// Set implements Storage.
func (s *SQLiteStore) Set(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err == nil
}

// Remove implements Storage.
func (s *SQLiteStore) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err == nil
}

// Close releases the database. Subsequent operations read as absence.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
