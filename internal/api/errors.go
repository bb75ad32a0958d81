package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error is a remote call failure classified by whether a retry could
// succeed. Fatal errors (server-side validation rejects) must be propagated
// to the caller; retryable errors trigger the local fallback path.
type Error struct {
	Status    int
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("remote: %s (status %d)", e.Message, e.Status)
	}
	return "remote: " + e.Message
}

// IsRetryable reports whether err represents a failure worth retrying:
// timeouts, connection errors and 5xx-class responses. A nil error is not
// retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// Transport-level failures without a structured type (connection refused,
	// DNS) arrive wrapped from net/http; treat them as retryable.
	return true
}

func statusError(status int, message string) *Error {
	return &Error{
		Status:    status,
		Message:   message,
		Retryable: status >= 500,
	}
}
