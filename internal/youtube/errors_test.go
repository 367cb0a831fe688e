package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusRequestEntityTooLarge, ErrTooLarge},
		{http.StatusTooManyRequests, ErrThrottled},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusBadGateway, ErrServerError},
		{http.StatusServiceUnavailable, ErrServerError},
		{http.StatusGatewayTimeout, ErrServerError},
		{http.StatusOK, nil},
		{http.StatusTeapot, nil},
	}

	for _, tt := range tests {
		got := classifyStatus(tt.status)
		if tt.sentinel == nil {
			assert.NoError(t, got, "status %d", tt.status)
		} else {
			assert.ErrorIs(t, got, tt.sentinel, "status %d", tt.status)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{
		StatusCode: http.StatusServiceUnavailable,
		Message:    "backend unavailable",
		Err:        ErrServerError,
	}

	assert.Equal(t, "youtube: HTTP 503: backend unavailable", err.Error())
}

func TestAPIError_Unwrap(t *testing.T) {
	var err error = &APIError{
		StatusCode: http.StatusUnauthorized,
		Err:        ErrUnauthorized,
	}

	assert.ErrorIs(t, err, ErrUnauthorized)

	wrapped := fmt.Errorf("outer: %w", err)
	assert.ErrorIs(t, wrapped, ErrUnauthorized)

	var apiErr *APIError
	require.ErrorAs(t, wrapped, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"transport", fmt.Errorf("request: %w: %w", ErrTransport, errors.New("reset")), true},
		{"server 500", &APIError{StatusCode: 500, Err: ErrServerError}, true},
		{"bad gateway", &APIError{StatusCode: 502, Err: ErrServerError}, true},
		{"unavailable", &APIError{StatusCode: 503, Err: ErrServerError}, true},
		{"gateway timeout", &APIError{StatusCode: 504, Err: ErrServerError}, true},
		{"unauthorized", &APIError{StatusCode: 401, Err: ErrUnauthorized}, false},
		{"forbidden", &APIError{StatusCode: 403, Err: ErrForbidden}, false},
		{"throttled", &APIError{StatusCode: 429, Err: ErrThrottled}, false},
		{"unknown 4xx", &APIError{StatusCode: 418}, false},
		{"wrapped api error", fmt.Errorf("attempt 3: %w", &APIError{StatusCode: 503, Err: ErrServerError}), true},
		{"canceled", fmt.Errorf("request canceled: %w", context.Canceled), false},
		{"deadline", fmt.Errorf("request canceled: %w", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetriable(tt.err))
		})
	}
}
