// Package sqlite provides a SQLite-backed history store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Sakibyash/infinoz-bot1/pkg/history/sqlstore"
)

// Store implements history.Store using SQLite.
type Store struct {
	*sqlstore.Store
}

// NewStore opens (or creates) the database at dbPath.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	s, err := sqlstore.New(ctx, db, sqlstore.SQLite)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{Store: s}, nil
}
