// Package postgres is the authoritative ledger store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/etnz/pocket"
	"github.com/lib/pq"
)

// Connect opens the database at url and checks it answers.
func Connect(ctx context.Context, url string) (*sql.DB, error) {
	if url == "" {
		return nil, errors.New("database url is required")
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", classify(err))
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return db, nil
}

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY DEFAULT uuid_generate_v4()::text,
		client_ref VARCHAR(64) UNIQUE,
		owner_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		kind VARCHAR(16) NOT NULL,
		category VARCHAR(64) NOT NULL DEFAULT '',
		icon VARCHAR(64) NOT NULL DEFAULT '',
		occurred_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_entries_owner_id ON entries(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_occurred_at ON entries(occurred_at)`,
}

// Migrate creates or upgrades the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, classify(err))
		}
	}
	return nil
}

// classify maps connection level failures to pocket.ErrUnreachable. Errors
// reported by the server itself are returned as they are.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("postgres %s (%s): %w", pqErr.Code.Name(), pqErr.Code, err)
	}
	if errors.Is(err, pocket.ErrUnreachable) {
		return err
	}
	return fmt.Errorf("%w: %w", pocket.ErrUnreachable, err)
}
