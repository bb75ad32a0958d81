package devserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"lingsync/internal/api"
	"lingsync/internal/progress"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *api.Client) {
	t.Helper()
	srv := New(opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, api.NewClient(ts.URL, "tok")
}

func TestApplyDeltaAdvancesState(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	srv, client := newTestServer(t, WithClock(func() time.Time { return now }))

	resp, err := client.ApplyDelta(ctx, api.DeltaPayload{XP: 120, IsLesson: true, WordsLearned: 5})
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if resp.Snapshot.XPTotal != 120 || resp.Snapshot.Lessons != 1 || resp.Snapshot.Streak != 1 {
		t.Fatalf("snapshot=%+v", resp.Snapshot)
	}

	wantMilestones := map[string]bool{"first-lesson": true, "level-1": true}
	if len(resp.UnlockedMilestones) != len(wantMilestones) {
		t.Fatalf("milestones=%v", resp.UnlockedMilestones)
	}
	for _, m := range resp.UnlockedMilestones {
		if !wantMilestones[m] {
			t.Fatalf("unexpected milestone %q in %v", m, resp.UnlockedMilestones)
		}
	}

	if got := srv.State().XPTotal; got != 120 {
		t.Fatalf("server state xp=%d, want 120", got)
	}
}

func TestStreakMilestone(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	srv, client := newTestServer(t, WithClock(func() time.Time { return now }))

	srv.SetState(progress.Snapshot{
		XPTotal:      10,
		Streak:       2,
		Lessons:      2,
		LastLessonAt: now.AddDate(0, 0, -1),
	})

	resp, err := client.ApplyDelta(ctx, api.DeltaPayload{XP: 5, IsLesson: true})
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if resp.Snapshot.Streak != 3 {
		t.Fatalf("streak=%d, want 3", resp.Snapshot.Streak)
	}
	found := false
	for _, m := range resp.UnlockedMilestones {
		if m == "streak-3" {
			found = true
		}
	}
	if !found {
		t.Fatalf("want streak-3 milestone, got %v", resp.UnlockedMilestones)
	}
}

func TestValidationReject(t *testing.T) {
	ctx := context.Background()
	_, client := newTestServer(t)

	_, err := client.ApplyDelta(ctx, api.DeltaPayload{XP: -10})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if api.IsRetryable(err) {
		t.Fatalf("validation reject must be fatal, got %v", err)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := New(WithToken("secret"))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	bad := api.NewClient(ts.URL, "wrong")
	if _, err := bad.FetchSnapshot(context.Background()); err == nil {
		t.Fatal("expected auth failure")
	}

	good := api.NewClient(ts.URL, "secret")
	if _, err := good.FetchSnapshot(context.Background()); err != nil {
		t.Fatalf("authorized fetch: %v", err)
	}
}

func TestInjectedFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	srv, client := newTestServer(t)

	srv.FailNextApplies(1)
	_, err := client.ApplyDelta(ctx, api.DeltaPayload{XP: 10})
	if err == nil {
		t.Fatal("expected injected failure")
	}
	if !api.IsRetryable(err) {
		t.Fatalf("injected 503 must be retryable, got %v", err)
	}

	// The failure consumed the injection; the next apply succeeds.
	if _, err := client.ApplyDelta(ctx, api.DeltaPayload{XP: 10}); err != nil {
		t.Fatalf("apply after injection: %v", err)
	}
}
