package engine

import (
	"context"
	"fmt"

	"lingsync/internal/api"
	"lingsync/internal/progress"
	"lingsync/internal/queue"
)

// applyUpdate runs one update request under the serializer: remote apply
// when reachable and authenticated, local fallback plus queued mutation
// otherwise. Fatal remote errors propagate without touching local state.
func (s *Service) applyUpdate(ctx context.Context, delta progress.Delta) (*UpdateResult, error) {
	before := s.CurrentSnapshot()
	baseline := progress.BaselineOf(before)

	if s.remoteAvailable() {
		resp, err := s.client.ApplyDelta(ctx, api.PayloadFromDelta(delta))
		if err == nil {
			next := resp.Snapshot.Snapshot()
			if err := s.setSnapshot(ctx, next); err != nil {
				return nil, err
			}
			return &UpdateResult{
				Snapshot:           next,
				LeveledUp:          progress.Level(next.XPTotal) > progress.Level(before.XPTotal),
				NewLevel:           progress.Level(next.XPTotal),
				UnlockedMilestones: resp.UnlockedMilestones,
			}, nil
		}
		if !api.IsRetryable(err) {
			return nil, err
		}
		s.logger.Printf("engine: remote apply failed, applying locally: %v", err)
	}

	// Offline or the remote refused in a retryable way: apply the same
	// arithmetic locally, queue the delta with its baseline, and resolve the
	// caller immediately. The mutation is enqueued first: if the snapshot
	// write fails afterwards the queued delta still replays on a drain,
	// whereas the reverse order could bake the delta into the persisted
	// snapshot with nothing left to send to the server.
	next := progress.Apply(before, delta, s.now())
	if _, err := s.queue.Enqueue(ctx, progress.PendingMutation{Delta: delta, Baseline: baseline}); err != nil {
		return nil, err
	}
	if err := s.setSnapshot(ctx, next); err != nil {
		return nil, err
	}
	s.kickFlush()

	return &UpdateResult{
		Snapshot:  next,
		LeveledUp: progress.Level(next.XPTotal) > progress.Level(before.XPTotal),
		NewLevel:  progress.Level(next.XPTotal),
		Queued:    true,
	}, nil
}

// remoteAvailable reports whether a remote apply is worth attempting now.
func (s *Service) remoteAvailable() bool {
	if s.client == nil || !s.client.Authenticated() {
		return false
	}
	if s.monitor != nil && !s.monitor.Reachable() {
		return false
	}
	return true
}

// kickFlush schedules an opportunistic drain when the network looks
// reachable. The drain runs behind the current job, never inside it.
func (s *Service) kickFlush() {
	if s.client == nil {
		return
	}
	if s.monitor != nil && !s.monitor.Reachable() {
		return
	}
	go func() {
		if err := s.Sync(context.Background()); err != nil {
			s.logger.Printf("engine: opportunistic sync: %v", err)
		}
	}()
}

// drain flushes the queue through one reconciliation pass. After a clean
// pass the server's snapshot is the local truth.
func (s *Service) drain(ctx context.Context) error {
	if s.queue.Pending() == 0 {
		return nil
	}
	if s.client == nil || !s.client.Authenticated() {
		return nil
	}

	pass := &drainPass{s: s}
	if err := s.queue.Flush(ctx, pass); err != nil {
		return err
	}
	if pass.began && s.queue.Pending() == 0 {
		// Nothing pending anymore: the server snapshot the pass tracked is
		// the truth, locally too. A stopped pass skips this and keeps the
		// optimistic local snapshot so later baselines still chain off it.
		return s.setSnapshot(ctx, pass.server)
	}
	return nil
}

// drainPass carries the per-pass reconciliation state: the authoritative
// snapshot fetched once at the start, updated after every successful apply
// so later baseline comparisons see the newest server experience.
type drainPass struct {
	s      *Service
	began  bool
	server progress.Snapshot
}

func (d *drainPass) Begin(ctx context.Context) error {
	payload, err := d.s.client.FetchSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	d.server = payload.Snapshot()
	d.began = true
	return nil
}

func (d *drainPass) Apply(ctx context.Context, item queue.Item[progress.PendingMutation]) error {
	m := item.Payload

	// Already satisfied: the server's experience meets or exceeds what this
	// mutation would have produced, so it reached the server through another
	// path. Discard instead of double-crediting.
	if d.server.XPTotal >= m.Baseline.XP+m.Delta.XP {
		d.s.logger.Printf("engine: mutation %s already reflected remotely (server xp %d >= %d), discarding",
			item.ID, d.server.XPTotal, m.Baseline.XP+m.Delta.XP)
		return nil
	}

	// Only the cached server state advances here. The local snapshot stays
	// at the optimistic total until the whole pass completes: installing the
	// server's mid-drain state would regress it below the pending chain's
	// tip, and the baseline of any update recorded after a stopped pass
	// would chain off the regressed value, tripping the already-satisfied
	// check on the next drain and dropping the update.
	resp, err := d.s.client.ApplyDelta(ctx, api.PayloadFromDelta(m.Delta))
	if err != nil {
		return err
	}
	d.server = resp.Snapshot.Snapshot()
	return nil
}
