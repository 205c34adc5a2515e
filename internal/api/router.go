package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/txlink/internal/middleware"
	"github.com/persistorai/txlink/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Hub         *ws.Hub
	Finder      ConnectionFinder
	Queue       SearchQueue
	Ledger      LedgerStats
	Throttle    ThrottleStats
	CORSOrigins []string
	// APIKey enables bearer authentication on every route except health
	// and metrics. Empty disables authentication.
	APIKey    string
	RateLimit float64
	RateBurst int
	Version   string
}

// Router-level limits.
const (
	maxBodySize      = 64 << 10 // 64 KB
	defaultRateLimit = 10       // requests per second per IP
	defaultRateBurst = 20       // token bucket burst size
	metricsPath      = "/metrics"
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(r *gin.Engine, deps *RouterDeps) {
	rateLimit, rateBurst := deps.RateLimit, deps.RateBurst
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}
	if rateBurst <= 0 {
		rateBurst = defaultRateBurst
	}

	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Retry-After", "Location"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware(metricsPath))

	// Metrics endpoint (unauthenticated, like health).
	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	var clients ClientCounter
	if deps.Hub != nil {
		clients = deps.Hub
	}

	health := NewHealthHandler(deps.Ledger, deps.Throttle, clients, log, deps.Version)
	connections := NewConnectionHandler(deps.Finder, log)
	searches := NewSearchHandler(deps.Queue, log)

	// Health is unauthenticated.
	api.GET("/health", health.Liveness)

	if deps.APIKey != "" {
		guard := middleware.NewBruteForceGuard(log)
		api.Use(middleware.BruteForceMiddleware(guard))
		api.Use(middleware.AuthMiddleware(middleware.NewStaticKey(deps.APIKey), log, guard))
	} else {
		log.Warn("SERVER_API_KEY not set, API is unauthenticated")
	}

	// Synchronous lookups.
	api.GET("/connections/:source/:target", connections.Find)

	// Background searches.
	if deps.Queue != nil {
		api.POST("/searches", searches.Create)
		api.GET("/searches/:id", searches.Get)
	}

	// WebSocket endpoint.
	if deps.Hub != nil {
		api.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
