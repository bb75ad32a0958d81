package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every remote call; expiry is treated like any other
// retryable network failure.
const DefaultTimeout = 30 * time.Second

// Client talks to the remote progress backend. It is handed an already
// issued bearer token and treats the endpoint as a black box exposing a
// snapshot read and a single "apply delta" mutation.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates a backend client for the given base URL. An empty token
// is allowed; the engine treats a token-less client as unauthenticated.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticated reports whether the client carries a token.
func (c *Client) Authenticated() bool { return c.token != "" }

// HealthURL returns the endpoint a connectivity probe should check.
func (c *Client) HealthURL() string { return c.baseURL + "/healthz" }

// FetchSnapshot reads the authoritative progress state. It is idempotent
// and side-effect free.
func (c *Client) FetchSnapshot(ctx context.Context) (SnapshotPayload, error) {
	var out SnapshotPayload
	if err := c.do(ctx, http.MethodGet, "/v1/progress", nil, &out); err != nil {
		return SnapshotPayload{}, err
	}
	return out, nil
}

// ApplyDelta asks the server to incorporate a progress delta and returns
// the new authoritative snapshot. Safe to call with a delta the server has
// already applied; replay protection is the caller's baseline check.
func (c *Client) ApplyDelta(ctx context.Context, d DeltaPayload) (ApplyResponse, error) {
	var out ApplyResponse
	if err := c.do(ctx, http.MethodPost, "/v1/progress/delta", d, &out); err != nil {
		return ApplyResponse{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload errorPayload
		msg := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
			msg = payload.Error
		}
		return statusError(resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			// A success status with a body the client cannot parse will not
			// parse any better on a retry; reject it as fatal.
			return &Error{Message: fmt.Sprintf("malformed response for %s %s: %v", method, path, err)}
		}
	}
	return nil
}
