package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Event is the structured message sent to WebSocket clients.
type Event struct {
	Type     string          `json:"type"`
	ID       uint64          `json:"id"`
	SearchID string          `json:"search_id"`
	Data     json.RawMessage `json:"data"`
	Time     time.Time       `json:"time"`
}

// SubscribeMsg is sent by the client on connect to request event replay.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client that the requested events are gone and the
// search should be fetched over HTTP instead.
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// EventSequence tracks monotonic event IDs per search.
type EventSequence struct {
	mu       sync.Mutex
	counters map[string]*atomic.Uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{
		counters: make(map[string]*atomic.Uint64),
	}
}

// Next returns the next sequence number for a search.
func (es *EventSequence) Next(searchID string) uint64 {
	es.mu.Lock()
	counter, ok := es.counters[searchID]
	if !ok {
		counter = &atomic.Uint64{}
		es.counters[searchID] = counter
	}
	es.mu.Unlock()

	return counter.Add(1)
}

// Forget drops the counter of a search whose stream has been evicted.
func (es *EventSequence) Forget(searchID string) {
	es.mu.Lock()
	defer es.mu.Unlock()

	delete(es.counters, searchID)
}
