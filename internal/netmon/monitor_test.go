package netmon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func boolProbe(v *atomic.Bool) Probe {
	return func(ctx context.Context) bool { return v.Load() }
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reachability edge")
	}
}

func assertNoSignal(t *testing.T, ch <-chan struct{}, d time.Duration) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("unexpected reachability edge")
	case <-time.After(d):
	}
}

func TestSeedCheckEmitsEdgeWhenReachable(t *testing.T) {
	var up atomic.Bool
	up.Store(true)

	m := New(boolProbe(&up), time.Hour)
	ch := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	// Cold start with live connectivity: the seed check itself is an edge,
	// so queued work flushes without waiting for a future transition.
	waitSignal(t, ch)
	if !m.Reachable() {
		t.Fatal("Reachable()=false after reachable seed")
	}
}

func TestSeedCheckSilentWhenUnreachable(t *testing.T) {
	var up atomic.Bool

	m := New(boolProbe(&up), time.Hour)
	ch := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	assertNoSignal(t, ch, 50*time.Millisecond)
	if m.Reachable() {
		t.Fatal("Reachable()=true after unreachable seed")
	}
}

func TestEdgeTriggeredOnRecovery(t *testing.T) {
	var up atomic.Bool

	m := New(boolProbe(&up), 10*time.Millisecond)
	ch := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	assertNoSignal(t, ch, 50*time.Millisecond)

	up.Store(true)
	waitSignal(t, ch)

	// Still reachable: no further edges while the state holds.
	assertNoSignal(t, ch, 50*time.Millisecond)

	// Down and back up again: exactly one more edge.
	up.Store(false)
	time.Sleep(50 * time.Millisecond)
	up.Store(true)
	waitSignal(t, ch)
}
