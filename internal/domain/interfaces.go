// Package domain defines the canonical service interfaces shared across API
// layers (REST, websocket, CLI). Consumers should depend on these interfaces
// rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/persistorai/txlink/internal/models"
)

// TransactionFetcher lists the transactions touching an address.
// Implementations must be safe for concurrent use.
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, addr models.Address, opts models.PageOptions) ([]models.Edge, error)
}

// ConnectionFinder runs a synchronous connection search.
type ConnectionFinder interface {
	FindConnection(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)
}

// SearchQueue runs connection searches in the background.
type SearchQueue interface {
	Submit(req models.SearchRequest) (*models.SearchJob, error)
	GetJob(id string) (*models.SearchJob, error)
}

// EventSink receives search progress events. Emit must not block the search
// for long; slow consumers should buffer or drop.
type EventSink interface {
	Emit(ev models.SearchEvent)
}
