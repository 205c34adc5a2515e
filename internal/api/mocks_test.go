package api_test

import (
	"context"

	"github.com/persistorai/txlink/internal/models"
)

// mockFinder implements api.ConnectionFinder for testing.
type mockFinder struct {
	findFn func(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)
}

func (m *mockFinder) FindConnection(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	return m.findFn(ctx, req)
}

// mockQueue implements api.SearchQueue for testing.
type mockQueue struct {
	submitFn func(req models.SearchRequest) (*models.SearchJob, error)
	getFn    func(id string) (*models.SearchJob, error)
}

func (m *mockQueue) Submit(req models.SearchRequest) (*models.SearchJob, error) {
	return m.submitFn(req)
}

func (m *mockQueue) GetJob(id string) (*models.SearchJob, error) {
	return m.getFn(id)
}

// mockStats implements api.LedgerStats, api.ThrottleStats and api.ClientCounter.
type mockStats struct {
	cacheLen  int
	rate      float64
	penalties int
	clients   int
}

func (m *mockStats) CacheLen() int { return m.cacheLen }
func (m *mockStats) Rate() float64 { return m.rate }
func (m *mockStats) Penalties() int { return m.penalties }
func (m *mockStats) ClientCount() int { return m.clients }
