// Package netmon observes network reachability and reports edge-triggered
// unreachable-to-reachable transitions. Consumers subscribe once and react
// to transitions instead of polling.
package netmon

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultInterval is how often reachability is probed.
	DefaultInterval = 15 * time.Second

	// DefaultProbeTimeout bounds a single probe.
	DefaultProbeTimeout = 3 * time.Second
)

// Probe reports whether the network currently looks reachable.
type Probe func(ctx context.Context) bool

// HTTPProbe probes reachability with a HEAD request against url. Any
// response at all counts as reachable; only transport failure does not.
func HTTPProbe(url string) Probe {
	client := &http.Client{Timeout: DefaultProbeTimeout}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}
}

// Monitor polls a probe and notifies subscribers on every transition from
// unreachable to reachable. The construction-time check seeds the initial
// state, so a cold start with live connectivity produces an immediate edge.
type Monitor struct {
	probe    Probe
	interval time.Duration

	mu        sync.Mutex
	reachable bool
	seeded    bool
	subs      []chan struct{}

	stop chan struct{}
	done chan struct{}
}

// New creates a monitor around the given probe. interval <= 0 uses the
// default.
func New(probe Probe, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		probe:    probe,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Subscribe returns a channel that receives one signal per reachability
// edge. The channel is buffered; an edge that arrives while a previous one
// is unconsumed is coalesced.
func (m *Monitor) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Reachable returns the last observed state. Informational only; it never
// gates correctness.
func (m *Monitor) Reachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reachable
}

// Start seeds the state with an immediate check and begins polling until
// ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.check(ctx)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check(ctx)
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop halts polling and waits for the poll loop to exit.
func (m *Monitor) Stop() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	<-m.done
}

func (m *Monitor) check(ctx context.Context) {
	up := m.probe(ctx)

	m.mu.Lock()
	wasReachable := m.reachable
	wasSeeded := m.seeded
	m.reachable = up
	m.seeded = true
	edge := up && (!wasSeeded || !wasReachable)
	var subs []chan struct{}
	if edge {
		subs = append(subs, m.subs...)
	}
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
