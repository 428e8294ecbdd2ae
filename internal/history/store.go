// Package history keeps an append-only audit log of tool invocations in a
// local SQLite database. The log is operator material; nothing in the serving
// path reads it.
package history

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Record is one completed invocation.
type Record struct {
	ID        string
	Tool      string
	Image     string
	Outcome   string
	Duration  time.Duration
	CreatedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS invocations (
	id          TEXT PRIMARY KEY,
	tool        TEXT NOT NULL,
	image       TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invocations_created ON invocations(created_at);
`

// Store persists invocation records.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening history db")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating history schema")
	}

	return &Store{db: db}, nil
}

// Append writes one record. A missing ID or timestamp is filled in.
func (s *Store) Append(rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO invocations (id, tool, image, outcome, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Tool, rec.Image, rec.Outcome, rec.Duration.Milliseconds(), rec.CreatedAt,
	)
	return errors.Wrap(err, "inserting invocation record")
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, tool, image, outcome, duration_ms, created_at FROM invocations ORDER BY created_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying invocation records")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.Tool, &rec.Image, &rec.Outcome, &durationMS, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning invocation record")
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
