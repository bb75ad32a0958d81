package storage

import (
	"context"
	"database/sql"
	"fmt"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshot (
			key TEXT PRIMARY KEY,
			xp_total INTEGER NOT NULL DEFAULT 0,
			streak INTEGER NOT NULL DEFAULT 0,
			lessons INTEGER NOT NULL DEFAULT 0,
			last_lesson_at DATETIME,
			server_confirmed INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// Pending mutations are stored as an ordered list; seq preserves
		// enqueue order across restarts.
		`CREATE TABLE IF NOT EXISTS pending_mutations (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			payload TEXT NOT NULL,
			enqueued_at DATETIME NOT NULL,
			retry_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_pending_mutations_enqueued_at ON pending_mutations(enqueued_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
