package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/txlink/internal/httputil"
	"github.com/persistorai/txlink/internal/metrics"
	"github.com/persistorai/txlink/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest    = "invalid_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeInternalError     = "internal_error"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeRateLimited       = "rate_limited"
	ErrCodeQueueFull         = "queue_full"
	ErrCodeRemoteUnavailable = "remote_unavailable"
	ErrCodeRemoteError       = "remote_error"
	ErrCodeTimeout           = "timeout"
)

// retryAfter is the hint sent with 503 responses.
const retryAfter = 5 * time.Second

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

func respondRetryable(c *gin.Context, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondRetryable(c, http.StatusServiceUnavailable, code, message, retryAfter)
}

// respondSearchError maps the search error taxonomy onto HTTP responses.
func respondSearchError(c *gin.Context, log *logrus.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, models.ErrSearchNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "search not found")
	case errors.Is(err, models.ErrQueueFull):
		respondRetryable(c, ErrCodeQueueFull, "search queue is full, try again later")
	case errors.Is(err, models.ErrRemoteUnavailable), errors.Is(err, models.ErrRemoteTransient):
		log.WithError(err).Warn("search aborted: ledger unavailable")
		respondRetryable(c, ErrCodeRemoteUnavailable, "ledger API unavailable, try again later")
	case errors.Is(err, models.ErrRemoteFatal):
		log.WithError(err).Error("search aborted: ledger request failed")
		respondError(c, http.StatusBadGateway, ErrCodeRemoteError, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		log.WithError(err).Warn("search timed out")
		respondError(c, http.StatusGatewayTimeout, ErrCodeTimeout, "search timed out")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		c.Abort()
	default:
		log.WithError(err).Error("search failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
