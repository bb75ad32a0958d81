package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/progress" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization=%q, want Bearer tok", got)
		}
		_ = json.NewEncoder(w).Encode(SnapshotPayload{XPTotal: 250, Streak: 3, Lessons: 12})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	got, err := c.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if got.XPTotal != 250 || got.Streak != 3 || got.Lessons != 12 {
		t.Fatalf("snapshot=%+v", got)
	}

	s := got.Snapshot()
	if !s.ServerConfirmed {
		t.Fatal("fetched snapshot must be server confirmed")
	}
}

func TestApplyDeltaServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"temporarily unavailable"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.ApplyDelta(context.Background(), DeltaPayload{XP: 10})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRetryable(err) {
		t.Fatalf("5xx should be retryable, got %v", err)
	}
}

func TestApplyDeltaValidationErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"xp must be positive"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.ApplyDelta(context.Background(), DeltaPayload{XP: -5})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRetryable(err) {
		t.Fatalf("4xx must be fatal, got %v", err)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *api.Error, got %T", err)
	}
	if apiErr.Message != "xp must be positive" {
		t.Fatalf("message=%q", apiErr.Message)
	}
}

func TestTimeoutIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", WithTimeout(20*time.Millisecond))
	_, err := c.FetchSnapshot(context.Background())
	if err == nil {
		t.Fatal("expected timeout")
	}
	if !IsRetryable(err) {
		t.Fatalf("timeout should be retryable, got %v", err)
	}
}

func TestMalformedSuccessBodyIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.FetchSnapshot(context.Background())
	if err == nil {
		t.Fatal("expected decode error")
	}
	// Retrying cannot make an unparseable success response parseable.
	if IsRetryable(err) {
		t.Fatalf("malformed 200 body must be fatal, got %v", err)
	}
}

func TestConnectionRefusedIsRetryable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "tok", WithTimeout(200*time.Millisecond))
	_, err := c.FetchSnapshot(context.Background())
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !IsRetryable(err) {
		t.Fatalf("connection refused should be retryable, got %v", err)
	}
}
