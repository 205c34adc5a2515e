package api

import (
	"github.com/persistorai/txlink/internal/domain"
)

// ConnectionFinder is the synchronous search used by ConnectionHandler.
type ConnectionFinder = domain.ConnectionFinder

// SearchQueue is the background search queue used by SearchHandler.
type SearchQueue = domain.SearchQueue

// LedgerStats reports ledger client state for the health endpoint.
type LedgerStats interface {
	CacheLen() int
}

// ThrottleStats reports the shared ledger throttle for the health endpoint.
type ThrottleStats interface {
	Rate() float64
	Penalties() int
}

// ClientCounter reports the number of connected WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}
