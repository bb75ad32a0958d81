// Package devserver is a reference implementation of the remote progress
// backend, for local development and end-to-end tests. It keeps state in
// memory and applies deltas with the same arithmetic the engine uses for
// its offline fallback.
package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lingsync/internal/api"
	"lingsync/internal/progress"
)

var streakMilestones = []int{3, 7, 30, 100, 365}

// Server holds the authoritative progress state behind an HTTP API.
type Server struct {
	mu      sync.Mutex
	state   progress.Snapshot
	perfect int

	token string
	now   func() time.Time

	// FailNext makes the next n delta applies answer 503, for exercising
	// the client's retry path.
	failNext int
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires the given bearer token on every request.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithClock replaces the server clock.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a dev server with empty progress.
func New(opts ...Option) *Server {
	s := &Server{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Head("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/v1/progress", s.handleFetch)
		r.Post("/v1/progress/delta", s.handleApply)
	})
	return r
}

// State returns a copy of the current authoritative snapshot.
func (s *Server) State() progress.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState replaces the authoritative snapshot, e.g. to simulate progress
// that reached the server through another device.
func (s *Server) SetState(snap progress.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.ServerConfirmed = true
	s.state = snap
}

// FailNextApplies makes the next n delta applies fail with a 503.
func (s *Server) FailNextApplies(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != s.token {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleFetch(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	payload := api.PayloadFromSnapshot(s.state)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var delta api.DeltaPayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&delta); err != nil {
		writeError(w, http.StatusBadRequest, "malformed delta: "+err.Error())
		return
	}
	if delta.XP < 0 {
		writeError(w, http.StatusBadRequest, "xp must be non-negative")
		return
	}
	if delta.WordsLearned < 0 {
		writeError(w, http.StatusBadRequest, "words_learned must be non-negative")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext > 0 {
		s.failNext--
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
		return
	}

	before := s.state
	beforePerfect := s.perfect
	s.state = progress.Apply(before, progress.Delta{
		XP:           delta.XP,
		IsLesson:     delta.IsLesson,
		Perfect:      delta.Perfect,
		WordsLearned: delta.WordsLearned,
		LessonID:     delta.LessonID,
		TimeSpentMin: delta.TimeSpentMin,
	}, s.now())
	s.state.ServerConfirmed = true
	if delta.IsLesson && delta.Perfect {
		s.perfect++
	}

	writeJSON(w, http.StatusOK, api.ApplyResponse{
		Snapshot:           api.PayloadFromSnapshot(s.state),
		UnlockedMilestones: s.milestones(before, beforePerfect),
	})
}

// milestones lists everything the latest apply newly unlocked.
func (s *Server) milestones(before progress.Snapshot, beforePerfect int) []string {
	var out []string
	if before.Lessons == 0 && s.state.Lessons > 0 {
		out = append(out, "first-lesson")
	}
	for lvl := progress.Level(before.XPTotal) + 1; lvl <= progress.Level(s.state.XPTotal); lvl++ {
		out = append(out, fmt.Sprintf("level-%d", lvl))
	}
	for _, mark := range streakMilestones {
		if before.Streak < mark && s.state.Streak >= mark {
			out = append(out, fmt.Sprintf("streak-%d", mark))
		}
	}
	if beforePerfect == 0 && s.perfect > 0 {
		out = append(out, "first-perfect-lesson")
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
