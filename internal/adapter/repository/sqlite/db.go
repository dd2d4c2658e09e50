package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DB wraps a SQLite database file holding the transaction log
type DB struct {
	*sql.DB
	path string
}

// NewDB opens (creating if needed) the SQLite database at path and makes sure
// the ledger_transactions table exists
func NewDB(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// The ledger is single-threaded; one connection keeps sqlite free of lock contention
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %s: %w", path, err)
	}

	query := `
		CREATE TABLE IF NOT EXISTS ledger_transactions (
			tx            INTEGER PRIMARY KEY,
			type          TEXT    NOT NULL,
			client        INTEGER NOT NULL,
			amount        INTEGER NOT NULL,
			under_dispute BOOLEAN NOT NULL DEFAULT 0,
			charged_back  BOOLEAN NOT NULL DEFAULT 0
		)
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger_transactions table: %w", err)
	}

	return &DB{DB: db, path: path}, nil
}

// NewScratchDB creates a fresh database file in dir for a single replay.
// Call Remove to delete the file once the replay is done.
func NewScratchDB(ctx context.Context, dir string) (*DB, error) {
	path := filepath.Join(dir, "ledger-"+uuid.NewString()+".db")
	return NewDB(ctx, path)
}

// Path returns the location of the database file
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Remove closes the database and deletes its file
func (db *DB) Remove() error {
	if err := db.Close(); err != nil {
		return err
	}
	if err := os.Remove(db.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", db.path, err)
	}
	return nil
}
