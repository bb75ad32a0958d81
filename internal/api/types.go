package api

import (
	"time"

	"lingsync/internal/progress"
)

// SnapshotPayload is the wire form of an authoritative progress snapshot.
type SnapshotPayload struct {
	XPTotal      int        `json:"xp_total"`
	Streak       int        `json:"streak"`
	Lessons      int        `json:"lessons"`
	LastLessonAt *time.Time `json:"last_lesson_at,omitempty"`
}

// DeltaPayload is the wire form of an "apply delta" request.
type DeltaPayload struct {
	XP           int    `json:"xp"`
	IsLesson     bool   `json:"is_lesson"`
	Perfect      bool   `json:"perfect,omitempty"`
	WordsLearned int    `json:"words_learned,omitempty"`
	LessonID     string `json:"lesson_id,omitempty"`
	TimeSpentMin int    `json:"time_spent_min,omitempty"`
}

// ApplyResponse is the server's answer to a delta apply: the new
// authoritative snapshot plus any milestones the delta unlocked.
type ApplyResponse struct {
	Snapshot           SnapshotPayload `json:"snapshot"`
	UnlockedMilestones []string        `json:"unlocked_milestones,omitempty"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Snapshot converts the wire payload into the domain snapshot. A snapshot
// obtained from the server is by definition server confirmed.
func (p SnapshotPayload) Snapshot() progress.Snapshot {
	s := progress.Snapshot{
		XPTotal:         p.XPTotal,
		Streak:          p.Streak,
		Lessons:         p.Lessons,
		ServerConfirmed: true,
	}
	if p.LastLessonAt != nil {
		s.LastLessonAt = *p.LastLessonAt
	}
	return s
}

// PayloadFromSnapshot converts a domain snapshot into its wire form.
func PayloadFromSnapshot(s progress.Snapshot) SnapshotPayload {
	p := SnapshotPayload{
		XPTotal: s.XPTotal,
		Streak:  s.Streak,
		Lessons: s.Lessons,
	}
	if !s.LastLessonAt.IsZero() {
		t := s.LastLessonAt
		p.LastLessonAt = &t
	}
	return p
}

// PayloadFromDelta converts a domain delta into its wire form.
func PayloadFromDelta(d progress.Delta) DeltaPayload {
	return DeltaPayload{
		XP:           d.XP,
		IsLesson:     d.IsLesson,
		Perfect:      d.Perfect,
		WordsLearned: d.WordsLearned,
		LessonID:     d.LessonID,
		TimeSpentMin: d.TimeSpentMin,
	}
}
