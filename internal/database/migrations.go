package database

import (
	"context"
	"fmt"
)

// Migrations is the ordered, idempotent schema of the ledger.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id BIGSERIAL PRIMARY KEY,
		recorded_at TIMESTAMPTZ NOT NULL,
		amount NUMERIC(14, 2) NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		receipt_link TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_recorded_at ON ledger_entries(recorded_at)`,
}

// RunMigrations creates the database schema.
func RunMigrations(ctx context.Context, db PGXDB) error {
	for i, migration := range Migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
