// Package youtube provides a thin authenticated HTTP client for the YouTube
// Data API: resumable video upload sessions, thumbnail and playlist calls,
// and channel lookup. The client performs no retries of its own; it
// classifies every failure so callers can decide what to repeat.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, youtube.ErrUnauthorized) to check.
var (
	ErrBadRequest   = errors.New("youtube: bad request")
	ErrUnauthorized = errors.New("youtube: unauthorized")
	ErrForbidden    = errors.New("youtube: forbidden")
	ErrNotFound     = errors.New("youtube: not found")
	ErrConflict     = errors.New("youtube: conflict")
	ErrTooLarge     = errors.New("youtube: payload too large")
	ErrThrottled    = errors.New("youtube: quota exceeded or throttled")
	ErrServerError  = errors.New("youtube: server error")
)

// ErrTransport marks low-level network failures (connection reset, broken
// pipe, truncated response) that occurred before a complete HTTP response
// was received. These are always worth retrying.
var ErrTransport = errors.New("youtube: transport failure")

// APIError wraps a sentinel error with the HTTP status code and the API
// error message body for debugging.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youtube: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusRequestEntityTooLarge:
		return ErrTooLarge
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// retriableStatuses are the server-side codes worth repeating a request for.
// Everything else in the 4xx/5xx range is a terminal rejection.
var retriableStatuses = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetriable reports whether an error from this package is transient:
// a server error in the retriable status set, or a transport failure.
// Context cancellation and every other classified API rejection are
// terminal. Unknown error kinds are terminal too, so a protocol surprise
// never turns into a retry loop.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retriableStatuses[apiErr.StatusCode]
	}

	return errors.Is(err, ErrTransport)
}
