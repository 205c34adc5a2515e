package ledger

import "github.com/persistorai/txlink/internal/metrics"

var (
	requestsTotal   = metrics.LedgerRequestsTotal
	requestDuration = metrics.LedgerRequestDuration
	retriesTotal    = metrics.LedgerRetries
	rateLimited     = metrics.LedgerRateLimited
	cacheHits       = metrics.LedgerCacheHits
)
