package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultDBPath returns the default local store location.
func DefaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".lingsync.db"), nil
}

// ResolveDBPath returns the LINGSYNC_DB override when set, otherwise the
// default location.
func ResolveDBPath() (string, error) {
	if p := os.Getenv("LINGSYNC_DB"); p != "" {
		return p, nil
	}
	return DefaultDBPath()
}

// Open opens (and creates if missing) the SQLite database at the provided
// path and applies the schema. The store must be opened before any update
// is submitted so queued mutations survive a restart.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
