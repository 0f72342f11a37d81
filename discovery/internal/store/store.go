// Package store persists the search log: one row per (invocation,
// term) with the outcome, so operators can audit what was searched and
// how the upstream behaved.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tokscout/dbopen"
)

// Schema creates the search log table.
const Schema = `
CREATE TABLE IF NOT EXISTS search_log (
	id            TEXT PRIMARY KEY,
	invocation_id TEXT NOT NULL,
	term          TEXT NOT NULL,
	requested     INTEGER NOT NULL,
	found         INTEGER NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	duration_ms   INTEGER NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_log_created ON search_log(created_at);
`

// Entry is one search log row.
type Entry struct {
	ID           string        `json:"id"`
	InvocationID string        `json:"invocation_id"`
	Term         string        `json:"term"`
	Requested    int           `json:"requested"`
	Found        int           `json:"found"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration_ms"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Store wraps the search log database.
type Store struct {
	DB *sql.DB
}

// ApplySchema creates the search log tables.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

// Insert records one search outcome.
func (s *Store) Insert(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO search_log (id, invocation_id, term, requested, found, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.InvocationID, e.Term, e.Requested, e.Found, e.Error,
		e.Duration.Milliseconds(), e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("store: insert search log: %w", err)
	}
	return nil
}

// Recent returns the most recent log entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, invocation_id, term, requested, found, error, duration_ms, created_at
		 FROM search_log ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list search log: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		var durMs, created int64
		if err := rows.Scan(&e.ID, &e.InvocationID, &e.Term, &e.Requested, &e.Found, &e.Error, &durMs, &created); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(durMs) * time.Millisecond
		e.CreatedAt = time.Unix(created, 0)
		out = append(out, &e)
	}
	return out, rows.Err()
}
