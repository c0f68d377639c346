// Package sqlite persists handoff values in a local SQLite file so the
// command-line client keeps job state between invocations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"resume-tailor/internal/handoff"
)

const schema = `
CREATE TABLE IF NOT EXISTS handoff (
	session_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (session_id, key)
);`

// Store is a handoff.Store over SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create handoff dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open handoff db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate handoff db: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, sessionID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM handoff WHERE session_id = ? AND key = ?`, sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", handoff.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get handoff %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, sessionID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO handoff (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionID, key, value, s.now().UTC())
	if err != nil {
		return fmt.Errorf("set handoff %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, sessionID string, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM handoff WHERE session_id = ? AND key = ?`, sessionID, key); err != nil {
			return fmt.Errorf("delete handoff %s: %w", key, err)
		}
	}
	return tx.Commit()
}

var _ handoff.Store = (*Store)(nil)
