package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// APIError represents a structured error response from the txlink API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("txlink: %d %s: %s (request_id=%s)", e.StatusCode, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("txlink: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func asAPIError(err error) (*APIError, bool) {
	var e *APIError
	ok := errors.As(err, &e)
	return e, ok
}

// IsNotFound returns true if the error is a 404 not found.
func IsNotFound(err error) bool {
	e, ok := asAPIError(err)
	return ok && e.StatusCode == http.StatusNotFound
}

// IsInvalidInput returns true if the server rejected the request as malformed.
func IsInvalidInput(err error) bool {
	e, ok := asAPIError(err)
	return ok && e.StatusCode == http.StatusBadRequest
}

// IsUnauthorized returns true if the server rejected the API key.
func IsUnauthorized(err error) bool {
	e, ok := asAPIError(err)
	return ok && e.StatusCode == http.StatusUnauthorized
}

// IsRateLimited returns true if the error is a 429 rate limit.
func IsRateLimited(err error) bool {
	e, ok := asAPIError(err)
	return ok && e.StatusCode == http.StatusTooManyRequests
}

// IsQueueFull returns true if the background search queue was saturated.
func IsQueueFull(err error) bool {
	e, ok := asAPIError(err)
	return ok && e.StatusCode == http.StatusServiceUnavailable && e.Code == "queue_full"
}

// IsRemoteUnavailable returns true if the ledger API stayed unavailable
// through the server's retries.
func IsRemoteUnavailable(err error) bool {
	e, ok := asAPIError(err)
	return ok && e.StatusCode == http.StatusServiceUnavailable && e.Code == "remote_unavailable"
}

// parseAPIError attempts to decode a JSON error body; falls back to raw text.
func parseAPIError(statusCode int, header http.Header, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(body)
	}
	if secs, err := strconv.Atoi(header.Get("Retry-After")); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}
