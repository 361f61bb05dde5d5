// Package chatdb provides read-only access to the Messages
// conversation store. It never writes: the database is opened in
// read-only mode and every query is a plain SELECT.
package chatdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// ErrUnavailable marks a conversation store that cannot be opened or
// read: missing file, missing Full Disk Access grant, corrupt store.
// Resolution paths degrade to empty results on this error.
var ErrUnavailable = errors.New("messages datastore unavailable")

// Store is a read-only handle on the conversation database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the Messages database read-only. The store holds a
// single connection; callers are short-lived processes, so no pool is
// kept.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect %s: %v", ErrUnavailable, path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db, path: path}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the underlying database path.
func (s *Store) Path() string {
	return s.path
}

// Check verifies the store is readable and its required tables exist.
// Returns human-readable status lines; the error is non-nil when the
// store is unusable.
func Check(path string) ([]string, error) {
	var status []string

	if _, err := os.Stat(path); err != nil {
		return status, fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	status = append(status, fmt.Sprintf("database file exists at %s", path))

	f, err := os.Open(path)
	if err != nil {
		return status, fmt.Errorf("%w: read %s: %v (grant Full Disk Access to the calling application)", ErrUnavailable, path, err)
	}
	f.Close()
	status = append(status, "file is readable")

	s, err := Open(path)
	if err != nil {
		return status, err
	}
	defer s.Close()

	var count int
	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('message', 'handle', 'chat')
	`).Scan(&count)
	if err != nil {
		return status, fmt.Errorf("%w: query %s: %v", ErrUnavailable, path, err)
	}
	if count < 3 {
		return status, fmt.Errorf("%w: %s is missing required tables", ErrUnavailable, path)
	}
	status = append(status, "required tables (chat, handle, message) are present")

	return status, nil
}

// query wraps QueryContext so the resolve and message readers share
// one failure translation point.
func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rows, nil
}
