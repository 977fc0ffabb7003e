// Package sqlstore implements history.Store over database/sql. The sqlite
// and postgres packages embed it and only differ in driver and dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sakibyash/infinoz-bot1/pkg/history"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	// SQLite uses "?" placeholders.
	SQLite Dialect = iota

	// Postgres uses "$n" placeholders.
	Postgres
)

const schema = `CREATE TABLE IF NOT EXISTS memory_history (
	id         TEXT PRIMARY KEY,
	memory_id  TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT '',
	old_memory TEXT NOT NULL DEFAULT '',
	new_memory TEXT NOT NULL DEFAULT '',
	event      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)`

const index = `CREATE INDEX IF NOT EXISTS idx_memory_history_memory_id ON memory_history (memory_id, created_at)`

// Store implements history.Store on a *sql.DB.
type Store struct {
	DB      *sql.DB
	dialect Dialect
}

// New wraps db and runs the schema migration.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{DB: db, dialect: dialect}

	for _, stmt := range []string{schema, index} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return s, nil
}

// Append implements history.Store.
func (s *Store) Append(ctx context.Context, rec *history.Record) error {
	if rec == nil {
		return history.ErrNilRecord
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.DB.ExecContext(ctx, s.rebind(
		`INSERT INTO memory_history (id, memory_id, user_id, old_memory, new_memory, event, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.MemoryID, rec.UserID, rec.OldMemory, rec.NewMemory, string(rec.Event), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}

	return nil
}

// List implements history.Store.
func (s *Store) List(ctx context.Context, memoryID string) ([]history.Record, error) {
	rows, err := s.DB.QueryContext(ctx, s.rebind(
		`SELECT id, memory_id, user_id, old_memory, new_memory, event, created_at
		 FROM memory_history WHERE memory_id = ? ORDER BY created_at ASC, id ASC`),
		memoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []history.Record
	for rows.Next() {
		var (
			rec   history.Record
			event string
		)
		if err := rows.Scan(&rec.ID, &rec.MemoryID, &rec.UserID, &rec.OldMemory, &rec.NewMemory, &event, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		rec.Event = history.Event(event)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// rebind rewrites "?" placeholders into the dialect's syntax.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
