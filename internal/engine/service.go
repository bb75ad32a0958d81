// Package engine reconciles local progress state with the remote server of
// record: updates apply remotely when possible, fall back to a local apply
// plus a queued mutation otherwise, and queued mutations replay exactly
// once per logical change when connectivity returns.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"lingsync/internal/api"
	"lingsync/internal/netmon"
	"lingsync/internal/progress"
	"lingsync/internal/queue"
	"lingsync/internal/storage"
)

// ErrClosed is returned for updates submitted after Close.
var ErrClosed = errors.New("engine: closed")

// RemoteClient is the remote backend contract the engine consumes. It is
// handed in already authenticated and treated as a black box.
type RemoteClient interface {
	FetchSnapshot(ctx context.Context) (api.SnapshotPayload, error)
	ApplyDelta(ctx context.Context, d api.DeltaPayload) (api.ApplyResponse, error)
	Authenticated() bool
}

// LessonInput describes a completed lesson.
type LessonInput struct {
	XP           int
	Perfect      bool
	WordsLearned int
	LessonID     string
	TimeSpentMin int
}

// UpdateResult is what a write entry point resolves to. The snapshot is the
// best-known state after the update, whether it came from the server or was
// synthesized locally.
type UpdateResult struct {
	Snapshot           progress.Snapshot
	LeveledUp          bool
	NewLevel           int
	UnlockedMilestones []string

	// Queued is true when the update applied locally and is awaiting sync.
	Queued bool
}

// LevelUpEvent is published on the level-up stream whenever the snapshot's
// implied level increases, identically for online and offline applies.
type LevelUpEvent struct {
	From    int
	To      int
	XPTotal int
	At      time.Time
}

// Options configures a Service.
type Options struct {
	Client  RemoteClient
	Monitor *netmon.Monitor
	Logger  *log.Logger
	Now     func() time.Time
	Queue   queue.Config
}

// Service is the progress facade: the read/write surface every surrounding
// service (achievements, challenges, UI) builds on.
type Service struct {
	snapStore *storage.SnapshotStore
	queue     *queue.Queue[progress.PendingMutation]
	client    RemoteClient
	monitor   *netmon.Monitor
	logger    *log.Logger
	now       func() time.Time

	mu   sync.RWMutex
	snap progress.Snapshot

	jobs chan job
	quit chan struct{}

	subMu sync.Mutex
	subs  []chan LevelUpEvent

	watcherDone chan struct{}
}

// New loads persisted state (snapshot and pending mutations) and starts the
// update serializer. State is fully loaded before any operation can be
// submitted.
func New(ctx context.Context, db *sql.DB, opts Options) (*Service, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Queue.Logger == nil {
		opts.Queue.Logger = opts.Logger
	}
	if opts.Queue.Now == nil {
		opts.Queue.Now = opts.Now
	}

	snapStore := storage.NewSnapshotStore(db)
	snap, _, err := snapStore.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	q, err := queue.New[progress.PendingMutation](ctx, storage.NewMutationStore(db), opts.Queue)
	if err != nil {
		return nil, err
	}

	s := &Service{
		snapStore: snapStore,
		queue:     q,
		client:    opts.Client,
		monitor:   opts.Monitor,
		logger:    opts.Logger,
		now:       opts.Now,
		snap:      snap,
		jobs:      make(chan job),
		quit:      make(chan struct{}),
	}
	go s.worker()
	if s.monitor != nil {
		s.watcherDone = make(chan struct{})
		go s.watchReconnect(s.monitor.Subscribe())
	}
	return s, nil
}

// Close stops accepting updates. Pending mutations stay persisted and drain
// on the next start.
func (s *Service) Close() {
	select {
	case <-s.quit:
		return
	default:
	}
	close(s.quit)
	if s.watcherDone != nil {
		<-s.watcherDone
	}
}

// watchReconnect drains the queue on every unreachable-to-reachable edge.
func (s *Service) watchReconnect(edges <-chan struct{}) {
	defer close(s.watcherDone)
	for {
		select {
		case <-edges:
			if err := s.Sync(context.Background()); err != nil {
				s.logger.Printf("engine: reconnect sync: %v", err)
			}
		case <-s.quit:
			return
		}
	}
}

// CurrentSnapshot returns the best-known progress state: server-confirmed
// when available, the locally synthesized state otherwise.
func (s *Service) CurrentSnapshot() progress.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// PendingSyncCount reports how many mutations await confirmation. For UI
// feedback only; it never gates correctness.
func (s *Service) PendingSyncCount() int { return s.queue.Pending() }

// IsSyncing reports whether a drain pass is in flight.
func (s *Service) IsSyncing() bool { return s.queue.Flushing() }

// LevelUps returns a stream of level-up notifications. The channel is
// buffered; slow consumers miss events rather than block updates.
func (s *Service) LevelUps() <-chan LevelUpEvent {
	ch := make(chan LevelUpEvent, 8)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

// RecordLessonCompletion applies a completed lesson. It returns as soon as
// the update applied remotely or locally; the caller never blocks on
// network recovery.
func (s *Service) RecordLessonCompletion(ctx context.Context, in LessonInput) (*UpdateResult, error) {
	if in.XP < 0 {
		return nil, fmt.Errorf("engine: lesson xp must be non-negative, got %d", in.XP)
	}
	delta := progress.Delta{
		XP:           in.XP,
		IsLesson:     true,
		Perfect:      in.Perfect,
		WordsLearned: in.WordsLearned,
		LessonID:     in.LessonID,
		TimeSpentMin: in.TimeSpentMin,
	}
	var res *UpdateResult
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.applyUpdate(ctx, delta)
		return err
	})
	return res, err
}

// AwardPassiveXP grants experience outside a lesson (daily bonuses, streak
// freezes bought back, promotional grants).
func (s *Service) AwardPassiveXP(ctx context.Context, xp int) error {
	if xp < 0 {
		return fmt.Errorf("engine: award xp must be non-negative, got %d", xp)
	}
	return s.do(ctx, func(ctx context.Context) error {
		_, err := s.applyUpdate(ctx, progress.Delta{XP: xp})
		return err
	})
}

// Sync drains the pending-mutation queue against the server. Safe to call
// at any time; a concurrent drain makes it a no-op.
func (s *Service) Sync(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.drain(ctx)
	})
}

// setSnapshot replaces the snapshot wholesale, persists it and publishes a
// level-up when the implied level increased. Level detection runs the same
// way whether the snapshot came from the server or was synthesized locally.
func (s *Service) setSnapshot(ctx context.Context, next progress.Snapshot) error {
	s.mu.Lock()
	before := s.snap
	s.snap = next
	s.mu.Unlock()

	if err := s.snapStore.Put(ctx, next); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}

	from, to := progress.Level(before.XPTotal), progress.Level(next.XPTotal)
	if to > from {
		s.publish(LevelUpEvent{From: from, To: to, XPTotal: next.XPTotal, At: s.now()})
	}
	return nil
}

func (s *Service) publish(ev LevelUpEvent) {
	s.subMu.Lock()
	subs := append([]chan LevelUpEvent(nil), s.subs...)
	s.subMu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
