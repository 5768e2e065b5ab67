// Package audit keeps a durable trail of who ran which command and how
// it ended. The trail is advisory: recording failures are logged by
// callers and never block a reply.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Entry is one recorded command outcome.
type Entry struct {
	ID        int64
	UserID    string
	ChatID    string
	Flow      string
	Outcome   string
	Detail    string
	CreatedAt time.Time
}

type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the audit database at path.
func NewStore(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Record(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_log (user_id, chat_id, flow, outcome, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.ChatID, entry.Flow, entry.Outcome, entry.Detail, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert command_log: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, chat_id, flow, outcome, detail, created_at
		 FROM command_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query command_log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ChatID, &e.Flow, &e.Outcome, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan command_log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
