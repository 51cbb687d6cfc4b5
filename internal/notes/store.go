// Package notes provides the persistent note storage behind the agent's
// memory tool, backed by SQLite.
package notes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// Record is one stored note. Notes are scoped per user so one caller's
// memory never leaks into another's conversations.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists notes in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens a note store at the given path. Use ":memory:"
// for an ephemeral store.
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create notes table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_notes_user_key ON notes(user_id, key)",
	}
	for _, idx := range indexes {
		if _, err := s.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Append stores a new note for the user. Existing notes under the same
// key are kept; reads return all of them newest-first.
func (s *Store) Append(ctx context.Context, userID, key, value string) (*Record, error) {
	rec := &Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Key:       key,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (id, user_id, key, value, created_at) VALUES (?, ?, ?, ?, ?)",
		rec.ID, rec.UserID, rec.Key, rec.Value, rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}
	return rec, nil
}

// ByKey returns the user's notes under a key, newest first.
func (s *Store) ByKey(ctx context.Context, userID, key string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, key, value, created_at FROM notes WHERE user_id = ? AND key = ? ORDER BY created_at DESC",
		userID, key,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Recent returns the user's most recent notes across all keys.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, key, value, created_at FROM notes WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Key, &rec.Value, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
