package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=ledger sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// EnsureSchema creates the ledger_transactions table if it does not exist yet
func (db *DB) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ledger_transactions (
			tx            BIGINT PRIMARY KEY,
			type          TEXT    NOT NULL,
			client        INTEGER NOT NULL,
			amount        BIGINT  NOT NULL,
			under_dispute BOOLEAN NOT NULL DEFAULT FALSE,
			charged_back  BOOLEAN NOT NULL DEFAULT FALSE
		)
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create ledger_transactions table: %w", err)
	}

	return nil
}

// Truncate deletes every recorded transaction
func (db *DB) Truncate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `TRUNCATE TABLE ledger_transactions`); err != nil {
		return fmt.Errorf("failed to truncate ledger_transactions: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
