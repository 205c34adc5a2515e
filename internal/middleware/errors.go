package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/persistorai/txlink/internal/httputil"
	"github.com/persistorai/txlink/internal/metrics"
)

// respondError counts the rejection and writes the shared JSON error body.
func respondError(c *gin.Context, code int, errCode, message string) {
	metrics.ErrorsTotal.WithLabelValues(errCode).Inc()
	httputil.RespondError(c, code, errCode, message)
}
