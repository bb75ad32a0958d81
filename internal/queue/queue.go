// Package queue implements the persisted, ordered mutation queue: enqueue
// order is drain order, retries are bounded, and mutations past a staleness
// ceiling are purged without an apply attempt.
package queue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxRetries is the per-mutation attempt ceiling. Past it the
	// mutation is dropped permanently rather than retried forever.
	DefaultMaxRetries = 8

	// DefaultMaxAge is the staleness ceiling. A mutation older than this is
	// assumed superseded by other activity and is purged without an apply
	// attempt.
	DefaultMaxAge = 24 * time.Hour
)

// Item is a queued payload together with its retry bookkeeping.
type Item[T any] struct {
	ID         string
	EnqueuedAt time.Time
	Retries    int
	Payload    T
}

// Store persists the full ordered list. Save rewrites the list wholesale so
// a crash mid-flush loses at most an in-flight retry-count increment, never
// a mutation.
type Store[T any] interface {
	Load(ctx context.Context) ([]Item[T], error)
	Save(ctx context.Context, items []Item[T]) error
}

// Drainer executes one flush pass. Begin runs once per pass (the engine
// fetches the authoritative snapshot there); Apply runs per item in enqueue
// order. A nil Apply result removes the item; an error stops the pass after
// the item's retry count is bumped.
type Drainer[T any] interface {
	Begin(ctx context.Context) error
	Apply(ctx context.Context, item Item[T]) error
}

// Config tunes a Queue. Zero values fall back to defaults.
type Config struct {
	MaxRetries int
	MaxAge     time.Duration
	Logger     *log.Logger
	Now        func() time.Time
}

// Queue is an ordered, persisted list of pending operations. It is generic
// over the operation payload.
type Queue[T any] struct {
	mu    sync.Mutex
	items []Item[T]

	store      Store[T]
	logger     *log.Logger
	maxRetries int
	maxAge     time.Duration
	now        func() time.Time

	flushing atomic.Bool
}

// New loads any persisted items and returns the queue ready for use.
func New[T any](ctx context.Context, store Store[T], cfg Config) (*Queue[T], error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	items, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	return &Queue[T]{
		items:      items,
		store:      store,
		logger:     cfg.Logger,
		maxRetries: cfg.MaxRetries,
		maxAge:     cfg.MaxAge,
		now:        cfg.Now,
	}, nil
}

// NewItemID builds a time-ordered unique identifier: enqueue nanos plus a
// random suffix to avoid collision.
func NewItemID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()[:8])
}

// Enqueue appends the payload, persists the list and returns the new item.
func (q *Queue[T]) Enqueue(ctx context.Context, payload T) (Item[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item := Item[T]{
		ID:         NewItemID(q.now()),
		EnqueuedAt: q.now(),
		Payload:    payload,
	}
	q.items = append(q.items, item)
	if err := q.store.Save(ctx, q.items); err != nil {
		q.items = q.items[:len(q.items)-1]
		return Item[T]{}, fmt.Errorf("persist queue: %w", err)
	}
	return item, nil
}

// Pending returns the number of queued items.
func (q *Queue[T]) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Flushing reports whether a flush pass is currently running.
func (q *Queue[T]) Flushing() bool { return q.flushing.Load() }

// Flush drains the queue through d. It is not re-entrant: a concurrent call
// is a no-op, since the in-flight pass picks up newly enqueued items before
// it finishes. The pass stops on the first hard failure so later mutations
// never apply before an earlier one.
func (q *Queue[T]) Flush(ctx context.Context, d Drainer[T]) error {
	if !q.flushing.CompareAndSwap(false, true) {
		return nil
	}
	defer q.flushing.Store(false)

	if err := q.purgeStale(ctx); err != nil {
		return err
	}
	if q.Pending() == 0 {
		return nil
	}

	if err := d.Begin(ctx); err != nil {
		return fmt.Errorf("begin drain: %w", err)
	}

	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			return nil
		}
		item := q.items[0]
		q.mu.Unlock()

		err := d.Apply(ctx, item)
		if err == nil {
			if err := q.removeFront(ctx, item.ID); err != nil {
				return err
			}
			continue
		}

		dropped, persistErr := q.recordFailure(ctx, item.ID)
		if persistErr != nil {
			return persistErr
		}
		if dropped {
			q.logger.Printf("queue: dropping mutation %s after %d attempts: %v", item.ID, q.maxRetries, err)
			continue
		}
		return fmt.Errorf("apply mutation %s: %w", item.ID, err)
	}
}

// purgeStale removes items past the age ceiling without applying them.
func (q *Queue[T]) purgeStale(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-q.maxAge)
	kept := q.items[:0]
	purged := 0
	for _, it := range q.items {
		if it.EnqueuedAt.Before(cutoff) {
			q.logger.Printf("queue: purging stale mutation %s (enqueued %s)", it.ID, it.EnqueuedAt.Format(time.RFC3339))
			purged++
			continue
		}
		kept = append(kept, it)
	}
	if purged == 0 {
		return nil
	}
	q.items = kept
	if err := q.store.Save(ctx, q.items); err != nil {
		return fmt.Errorf("persist queue after purge: %w", err)
	}
	return nil
}

func (q *Queue[T]) removeFront(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 || q.items[0].ID != id {
		return nil
	}
	q.items = q.items[1:]
	if err := q.store.Save(ctx, q.items); err != nil {
		return fmt.Errorf("persist queue after remove: %w", err)
	}
	return nil
}

// recordFailure bumps the front item's retry count, dropping it once the
// ceiling is reached. Returns whether the item was dropped.
func (q *Queue[T]) recordFailure(ctx context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 || q.items[0].ID != id {
		return false, nil
	}
	q.items[0].Retries++
	if q.items[0].Retries >= q.maxRetries {
		q.items = q.items[1:]
		if err := q.store.Save(ctx, q.items); err != nil {
			return true, fmt.Errorf("persist queue after drop: %w", err)
		}
		return true, nil
	}
	if err := q.store.Save(ctx, q.items); err != nil {
		return false, fmt.Errorf("persist queue after retry: %w", err)
	}
	return false, nil
}
