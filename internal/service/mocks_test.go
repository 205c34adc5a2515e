package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/txlink/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

// addr returns a valid address whose last byte is n.
func addr(n int) models.Address {
	return models.Address(fmt.Sprintf("0x%040x", n))
}

func tx(from, to models.Address, hash string) models.Edge {
	return models.Edge{From: from, To: to, TxHash: hash}
}

// listings indexes each transfer under both endpoints, as a ledger API lists
// it for sender and receiver alike.
func listings(edges ...models.Edge) map[models.Address][]models.Edge {
	g := make(map[models.Address][]models.Edge)
	for _, e := range edges {
		g[e.From] = append(g[e.From], e)
		if e.To != e.From {
			g[e.To] = append(g[e.To], e)
		}
	}
	return g
}

// mockFetcher serves a fixed transaction graph and records calls.
type mockFetcher struct {
	mu    sync.Mutex
	calls []models.Address

	graph map[models.Address][]models.Edge
	errs  map[models.Address]error
	fetch func(ctx context.Context, addr models.Address) ([]models.Edge, error)
}

func (m *mockFetcher) FetchTransactions(ctx context.Context, addr models.Address, _ models.PageOptions) ([]models.Edge, error) {
	m.mu.Lock()
	m.calls = append(m.calls, addr)
	m.mu.Unlock()

	if m.fetch != nil {
		return m.fetch(ctx, addr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.errs[addr]; err != nil {
		return nil, err
	}
	return m.graph[addr], nil
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockFetcher) callsFor(a models.Address) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == a {
			n++
		}
	}
	return n
}

// recordingSink collects emitted events.
type recordingSink struct {
	mu     sync.Mutex
	events []models.SearchEvent
}

func (s *recordingSink) Emit(ev models.SearchEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) ofType(t models.SearchEventType) []models.SearchEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SearchEvent
	for _, ev := range s.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (s *recordingSink) types() []models.SearchEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SearchEventType, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Type
	}
	return out
}

// mockSearcher implements Searcher with a configurable function.
type mockSearcher struct {
	find func(ctx context.Context, id string, req models.SearchRequest) (*models.SearchResult, error)
}

func (m *mockSearcher) FindConnectionWithID(ctx context.Context, id string, req models.SearchRequest) (*models.SearchResult, error) {
	return m.find(ctx, id, req)
}
