// Package store persists fetched change-calendar snapshots in SQLite so
// successive fetches of the same calendar can be diffed against history.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/koyomi-dev/koyomi/internal/logging"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrNoSnapshot = errors.New("no snapshot recorded")

// Snapshot is one stored copy of a calendar's ICS text.
type Snapshot struct {
	ID         string
	Calendar   string
	Content    string
	State      string
	EventCount int
	FetchedAt  time.Time
}

// Store keeps calendar snapshots in a SQLite database.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if needed) the SQLite database at path and runs
// migrations from schema.sql.
func Open(path string, logger logging.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store %s: %w", path, err)
	}
	s, err := NewWithDB(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing database handle and runs migrations.
// Tests use this with an in-memory database.
func NewWithDB(db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a new snapshot and returns it with ID and FetchedAt set.
func (s *Store) Record(ctx context.Context, calendar, content, state string, eventCount int) (*Snapshot, error) {
	if calendar == "" {
		return nil, fmt.Errorf("calendar name is required")
	}
	snap := &Snapshot{
		ID:         uuid.NewString(),
		Calendar:   calendar,
		Content:    content,
		State:      state,
		EventCount: eventCount,
		FetchedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, calendar, content, state, event_count, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Calendar, snap.Content, snap.State, snap.EventCount, snap.FetchedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("record snapshot for %s: %w", calendar, err)
	}
	if s.logger != nil {
		s.logger.Debug("snapshot recorded",
			logging.Field{Key: "calendar", Value: calendar},
			logging.Field{Key: "events", Value: eventCount})
	}
	return snap, nil
}

// Latest returns the most recent snapshot for a calendar.
func (s *Store) Latest(ctx context.Context, calendar string) (*Snapshot, error) {
	return s.nth(ctx, calendar, 0)
}

// Previous returns the snapshot before the latest one, the usual "old"
// side of a history diff.
func (s *Store) Previous(ctx context.Context, calendar string) (*Snapshot, error) {
	return s.nth(ctx, calendar, 1)
}

func (s *Store) nth(ctx context.Context, calendar string, offset int) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, calendar, content, state, event_count, fetched_at
		 FROM snapshots WHERE calendar = ?
		 ORDER BY fetched_at DESC, rowid DESC
		 LIMIT 1 OFFSET ?`, calendar, offset)
	return scanSnapshot(row)
}

// List returns up to limit snapshots for a calendar, newest first.
// A limit of 0 means no limit.
func (s *Store) List(ctx context.Context, calendar string, limit int) ([]*Snapshot, error) {
	q := `SELECT id, calendar, content, state, event_count, fetched_at
	      FROM snapshots WHERE calendar = ?
	      ORDER BY fetched_at DESC, rowid DESC`
	args := []interface{}{calendar}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots for %s: %w", calendar, err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var snap Snapshot
	var fetchedAt int64
	err := row.Scan(&snap.ID, &snap.Calendar, &snap.Content, &snap.State, &snap.EventCount, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	snap.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	return &snap, nil
}
