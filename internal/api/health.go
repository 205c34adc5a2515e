// Package api provides HTTP handlers for txlink.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthHandler serves the health check endpoint.
type HealthHandler struct {
	ledger    LedgerStats
	throttle  ThrottleStats
	clients   ClientCounter
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. Any of ledger, throttle and
// clients may be nil.
func NewHealthHandler(ledger LedgerStats, throttle ThrottleStats, clients ClientCounter, log *logrus.Logger, version string) *HealthHandler {
	return &HealthHandler{
		ledger:    ledger,
		throttle:  throttle,
		clients:   clients,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

// ledgerHealth describes the shared ledger client.
type ledgerHealth struct {
	CacheEntries int     `json:"cache_entries"`
	Rate         float64 `json:"rate_per_second"`
	Penalties    int     `json:"penalties"`
}

// healthResponse is the JSON payload returned by the health endpoint.
type healthResponse struct {
	Status        string       `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds float64      `json:"uptime_seconds"`
	Ledger        ledgerHealth `json:"ledger"`
	WSClients     int          `json:"ws_clients"`
}

// Liveness handles GET /api/v1/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.ledger != nil {
		resp.Ledger.CacheEntries = h.ledger.CacheLen()
	}

	if h.throttle != nil {
		resp.Ledger.Rate = h.throttle.Rate()
		resp.Ledger.Penalties = h.throttle.Penalties()
	}

	if h.clients != nil {
		resp.WSClients = h.clients.ClientCount()
	}

	c.JSON(http.StatusOK, resp)
}
