package queue

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"
)

type memStore[T any] struct {
	mu    sync.Mutex
	items []Item[T]
	saves int
}

func (s *memStore[T]) Load(ctx context.Context) ([]Item[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item[T](nil), s.items...), nil
}

func (s *memStore[T]) Save(ctx context.Context, items []Item[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]Item[T](nil), items...)
	s.saves++
	return nil
}

type fakeDrainer[T any] struct {
	begins  int
	applied []Item[T]
	fail    func(Item[T]) error
	block   chan struct{}
}

func (d *fakeDrainer[T]) Begin(ctx context.Context) error {
	d.begins++
	return nil
}

func (d *fakeDrainer[T]) Apply(ctx context.Context, item Item[T]) error {
	if d.block != nil {
		<-d.block
	}
	d.applied = append(d.applied, item)
	if d.fail != nil {
		return d.fail(item)
	}
	return nil
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestQueue(t *testing.T, cfg Config) (*Queue[int], *memStore[int]) {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	store := &memStore[int]{}
	q, err := New[int](context.Background(), store, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return q, store
}

func TestFlushAppliesInEnqueueOrder(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, Config{})

	for _, v := range []int{1, 2, 3} {
		if _, err := q.Enqueue(ctx, v); err != nil {
			t.Fatalf("Enqueue(%d): %v", v, err)
		}
	}

	d := &fakeDrainer[int]{}
	if err := q.Flush(ctx, d); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if d.begins != 1 {
		t.Fatalf("begins=%d, want 1", d.begins)
	}
	if len(d.applied) != 3 {
		t.Fatalf("applied %d items, want 3", len(d.applied))
	}
	for i, it := range d.applied {
		if it.Payload != i+1 {
			t.Fatalf("applied[%d]=%d, want %d", i, it.Payload, i+1)
		}
	}
	if q.Pending() != 0 {
		t.Fatalf("pending=%d, want 0", q.Pending())
	}
}

func TestFlushStopsPassOnFailure(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, Config{})

	for _, v := range []int{1, 2, 3} {
		if _, err := q.Enqueue(ctx, v); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	boom := errors.New("boom")
	d := &fakeDrainer[int]{fail: func(it Item[int]) error {
		if it.Payload == 2 {
			return boom
		}
		return nil
	}}
	err := q.Flush(ctx, d)
	if !errors.Is(err, boom) {
		t.Fatalf("Flush err=%v, want wrapped boom", err)
	}
	// Item 1 applied and removed; items 2 and 3 remain, 3 never attempted.
	if q.Pending() != 2 {
		t.Fatalf("pending=%d, want 2", q.Pending())
	}
	if len(d.applied) != 2 {
		t.Fatalf("applied=%d items, want 2 (1 then failing 2)", len(d.applied))
	}
}

func TestBoundedRetryDropsAfterCeiling(t *testing.T) {
	ctx := context.Background()
	const ceiling = 3
	q, _ := newTestQueue(t, Config{MaxRetries: ceiling})

	if _, err := q.Enqueue(ctx, 42); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	boom := errors.New("always fails")
	d := &fakeDrainer[int]{fail: func(Item[int]) error { return boom }}

	attempts := 0
	for i := 0; i < ceiling+5; i++ {
		if q.Pending() == 0 {
			break
		}
		_ = q.Flush(ctx, d)
		attempts++
	}
	if got := len(d.applied); got != ceiling {
		t.Fatalf("apply attempts=%d, want exactly %d", got, ceiling)
	}
	if q.Pending() != 0 {
		t.Fatalf("pending=%d, want 0 after drop", q.Pending())
	}

	// Dropped means dropped: further flushes never touch it again.
	before := len(d.applied)
	if err := q.Flush(ctx, d); err != nil {
		t.Fatalf("Flush after drop: %v", err)
	}
	if len(d.applied) != before {
		t.Fatal("dropped mutation was retried")
	}
}

func TestStaleMutationsPurgedWithoutApply(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	q, _ := newTestQueue(t, Config{Now: func() time.Time { return *clock }})

	if _, err := q.Enqueue(ctx, 7); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	later := now.Add(25 * time.Hour)
	clock = &later

	d := &fakeDrainer[int]{}
	if err := q.Flush(ctx, d); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(d.applied) != 0 {
		t.Fatalf("stale mutation was applied %d times", len(d.applied))
	}
	if d.begins != 0 {
		t.Fatal("drain pass began for an empty queue")
	}
	if q.Pending() != 0 {
		t.Fatalf("pending=%d, want 0", q.Pending())
	}
}

func TestFreshMutationSurvivesPurge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	q, _ := newTestQueue(t, Config{Now: func() time.Time { return *clock }})

	if _, err := q.Enqueue(ctx, 1); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	later := now.Add(23 * time.Hour)
	clock = &later
	if _, err := q.Enqueue(ctx, 2); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	d := &fakeDrainer[int]{}
	if err := q.Flush(ctx, d); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(d.applied) != 2 {
		t.Fatalf("applied=%d, want 2 (23h old is not stale)", len(d.applied))
	}
}

func TestConcurrentFlushIsNoOp(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, Config{})

	if _, err := q.Enqueue(ctx, 1); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	block := make(chan struct{})
	d := &fakeDrainer[int]{block: block}

	done := make(chan error, 1)
	go func() { done <- q.Flush(ctx, d) }()

	// Wait until the first flush is inside its pass.
	for !q.Flushing() {
		time.Sleep(time.Millisecond)
	}

	second := &fakeDrainer[int]{}
	if err := q.Flush(ctx, second); err != nil {
		t.Fatalf("concurrent Flush: %v", err)
	}
	if second.begins != 0 {
		t.Fatal("concurrent flush started its own pass")
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first Flush: %v", err)
	}
}

func TestQueueStatePersistsThroughStore(t *testing.T) {
	ctx := context.Background()
	store := &memStore[int]{}
	q, err := New[int](ctx, store, Config{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, v := range []int{1, 2} {
		if _, err := q.Enqueue(ctx, v); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	// A second queue over the same store sees the same items, in order.
	q2, err := New[int](ctx, store, Config{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New reload: %v", err)
	}
	if q2.Pending() != 2 {
		t.Fatalf("reloaded pending=%d, want 2", q2.Pending())
	}
	d := &fakeDrainer[int]{}
	if err := q2.Flush(ctx, d); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if d.applied[0].Payload != 1 || d.applied[1].Payload != 2 {
		t.Fatalf("reloaded order wrong: %+v", d.applied)
	}
}
