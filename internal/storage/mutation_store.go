package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"lingsync/internal/progress"
	"lingsync/internal/queue"
)

// MutationStore persists the ordered pending-mutation list. It implements
// queue.Store for the engine's mutation payload: Save rewrites the whole
// list in one transaction, Load returns it in enqueue order.
type MutationStore struct {
	db *sql.DB
}

func NewMutationStore(db *sql.DB) *MutationStore {
	return &MutationStore{db: db}
}

func (s *MutationStore) Load(ctx context.Context) ([]queue.Item[progress.PendingMutation], error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload, enqueued_at, retry_count
		FROM pending_mutations ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("mutations load: %w", err)
	}
	defer rows.Close()

	var items []queue.Item[progress.PendingMutation]
	for rows.Next() {
		var (
			item    queue.Item[progress.PendingMutation]
			payload string
			at      string
		)
		if err := rows.Scan(&item.ID, &payload, &at, &item.Retries); err != nil {
			return nil, fmt.Errorf("mutations scan: %w", err)
		}
		// Reject malformed rows explicitly rather than defaulting silently.
		if err := json.Unmarshal([]byte(payload), &item.Payload); err != nil {
			return nil, fmt.Errorf("mutation %s payload: %w", item.ID, err)
		}
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("mutation %s enqueued_at: %w", item.ID, err)
		}
		item.EnqueuedAt = t
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mutations rows: %w", err)
	}
	return items, nil
}

func (s *MutationStore) Save(ctx context.Context, items []queue.Item[progress.PendingMutation]) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mutations tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_mutations`); err != nil {
		return fmt.Errorf("mutations clear: %w", err)
	}
	for _, item := range items {
		raw, err := json.Marshal(item.Payload)
		if err != nil {
			return fmt.Errorf("mutation %s marshal: %w", item.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pending_mutations (id, payload, enqueued_at, retry_count)
			VALUES (?, ?, ?, ?)
		`, item.ID, string(raw), item.EnqueuedAt.UTC().Format(time.RFC3339Nano), item.Retries)
		if err != nil {
			return fmt.Errorf("mutation %s insert: %w", item.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mutations commit: %w", err)
	}
	return nil
}
