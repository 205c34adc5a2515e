package ledger

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/persistorai/txlink/internal/models"
)

// APIError is a rejection reported by the ledger API, either through an HTTP
// status or through Etherscan's status/message/result envelope. It unwraps to
// one of the models sentinels so callers can classify it with errors.Is.
type APIError struct {
	StatusCode int           `json:"-"`
	Status     string        `json:"status"`
	Message    string        `json:"message"`
	Result     string        `json:"result,omitempty"`
	RetryAfter time.Duration `json:"-"`

	kind error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	detail := e.Message
	if e.Result != "" && e.Result != e.Message {
		detail += ": " + e.Result
	}

	return fmt.Sprintf("etherscan: %d %s (%v)", e.StatusCode, detail, e.kind)
}

// Unwrap returns the taxonomy sentinel for the rejection.
func (e *APIError) Unwrap() error { return e.kind }

// envelope is the common Etherscan response shape. Result holds rows on
// success and a human-readable string on failure.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// classifyHTTP maps a non-2xx HTTP status to an APIError, or nil when the
// status carries no error of its own.
func classifyHTTP(resp *http.Response, body []byte) *APIError {
	code := resp.StatusCode
	if code < http.StatusBadRequest {
		return nil
	}

	apiErr := &APIError{StatusCode: code, Message: http.StatusText(code), Result: truncate(string(body), 200)}

	switch {
	case code == http.StatusTooManyRequests:
		apiErr.kind = models.ErrRateLimited
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		apiErr.kind = models.ErrUnauthorized
	case code >= http.StatusInternalServerError || code == http.StatusRequestTimeout:
		apiErr.kind = models.ErrRemoteTransient
	default:
		apiErr.kind = models.ErrRemoteFatal
	}

	return apiErr
}

// classifyEnvelope maps a status "0" envelope to an APIError. A nil error with
// empty=true means the envelope is Etherscan's empty-listing response.
func classifyEnvelope(code int, env *envelope) (apiErr *APIError, empty bool) {
	var result string
	if err := json.Unmarshal(env.Result, &result); err != nil {
		result = ""
	}

	msg := strings.ToLower(env.Message)
	text := msg + " " + strings.ToLower(result)

	if msg == "no transactions found" {
		return nil, true
	}

	apiErr = &APIError{StatusCode: code, Status: env.Status, Message: env.Message, Result: result}

	switch {
	case strings.Contains(text, "rate limit") || strings.Contains(text, "too many requests"):
		apiErr.kind = models.ErrRateLimited
	case strings.Contains(text, "api key"):
		apiErr.kind = models.ErrUnauthorized
	case strings.Contains(text, "invalid address"):
		apiErr.kind = models.ErrInvalidAddress
	case strings.Contains(text, "timeout") || strings.Contains(text, "temporarily unavailable"):
		apiErr.kind = models.ErrRemoteTransient
	default:
		apiErr.kind = models.ErrRemoteFatal
	}

	return apiErr, false
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}

	return time.Duration(secs) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
