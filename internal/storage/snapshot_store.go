package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lingsync/internal/progress"
)

// SnapshotKey is the single-row key for the last-known snapshot.
const SnapshotKey = "main"

// SnapshotStore persists the last-known progress snapshot. The record is
// replaced wholesale on every write.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Get returns the stored snapshot and whether one exists.
func (s *SnapshotStore) Get(ctx context.Context) (progress.Snapshot, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT xp_total, streak, lessons, last_lesson_at, server_confirmed
		FROM snapshot WHERE key = ?
	`, SnapshotKey)

	var (
		snap      progress.Snapshot
		last      sql.NullString
		confirmed int
	)
	if err := row.Scan(&snap.XPTotal, &snap.Streak, &snap.Lessons, &last, &confirmed); err != nil {
		if err == sql.ErrNoRows {
			return progress.Snapshot{}, false, nil
		}
		return progress.Snapshot{}, false, fmt.Errorf("snapshot get: %w", err)
	}
	if last.Valid && last.String != "" {
		t, err := time.Parse(time.RFC3339Nano, last.String)
		if err != nil {
			return progress.Snapshot{}, false, fmt.Errorf("snapshot last_lesson_at: %w", err)
		}
		snap.LastLessonAt = t
	}
	snap.ServerConfirmed = confirmed != 0
	return snap, true, nil
}

// Put replaces the stored snapshot.
func (s *SnapshotStore) Put(ctx context.Context, snap progress.Snapshot) error {
	var last any
	if !snap.LastLessonAt.IsZero() {
		last = snap.LastLessonAt.UTC().Format(time.RFC3339Nano)
	}
	confirmed := 0
	if snap.ServerConfirmed {
		confirmed = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshot (key, xp_total, streak, lessons, last_lesson_at, server_confirmed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			xp_total = excluded.xp_total,
			streak = excluded.streak,
			lessons = excluded.lessons,
			last_lesson_at = excluded.last_lesson_at,
			server_confirmed = excluded.server_confirmed,
			updated_at = CURRENT_TIMESTAMP
	`, SnapshotKey, snap.XPTotal, snap.Streak, snap.Lessons, last, confirmed)
	if err != nil {
		return fmt.Errorf("snapshot put: %w", err)
	}
	return nil
}
