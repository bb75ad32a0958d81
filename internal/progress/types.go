package progress

import "time"

// Snapshot is the authoritative progress record as of the last successful
// server fetch or apply. It is replaced wholesale, never field by field.
type Snapshot struct {
	XPTotal      int
	Streak       int
	Lessons      int
	LastLessonAt time.Time

	// ServerConfirmed is false while the snapshot was synthesized locally
	// and has never been confirmed by the server.
	ServerConfirmed bool
}

// Delta is a single requested progress change.
type Delta struct {
	XP           int
	IsLesson     bool
	Perfect      bool
	WordsLearned int
	LessonID     string
	TimeSpentMin int
}

// Baseline captures the totals as understood immediately before a delta was
// applied locally. It is recorded once at enqueue time and never modified;
// it anchors the already-applied check during a queue drain.
type Baseline struct {
	XP      int
	Lessons int
	Streak  int
}

// PendingMutation is a not-yet-confirmed delta together with its baseline.
type PendingMutation struct {
	Delta    Delta    `json:"delta"`
	Baseline Baseline `json:"baseline"`
}

// BaselineOf extracts the baseline totals from a snapshot.
func BaselineOf(s Snapshot) Baseline {
	return Baseline{XP: s.XPTotal, Lessons: s.Lessons, Streak: s.Streak}
}

// Apply computes the snapshot that results from applying d to s at time now,
// using the same arithmetic the server uses. The result is a fresh snapshot
// with ServerConfirmed cleared.
func Apply(s Snapshot, d Delta, now time.Time) Snapshot {
	next := s
	next.ServerConfirmed = false
	next.XPTotal += d.XP
	if next.XPTotal < 0 {
		next.XPTotal = 0
	}
	if d.IsLesson {
		next.Lessons++
		next.Streak = NextStreak(s.Streak, s.LastLessonAt, now)
		next.LastLessonAt = now
	}
	return next
}
