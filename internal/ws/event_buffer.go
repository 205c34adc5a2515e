package ws

import (
	"sync"
	"time"
)

const (
	defaultBufferMaxLen = 2000
	defaultBufferMaxAge = 30 * time.Minute
	bufferSweepInterval = 5 * time.Minute
)

// EventBuffer stores recent events per search for replay when a subscriber
// connects after the search has started.
type EventBuffer struct {
	mu      sync.RWMutex
	events  map[string][]Event
	maxAge  time.Duration
	maxLen  int
	stop    chan struct{}
	stopped sync.Once
	onEvict func(searchID string)
}

// NewEventBuffer creates an EventBuffer with the given limits and starts a
// background goroutine that drops streams idle longer than maxAge.
func NewEventBuffer(maxLen int, maxAge time.Duration) *EventBuffer {
	eb := &EventBuffer{
		events: make(map[string][]Event),
		maxAge: maxAge,
		maxLen: maxLen,
		stop:   make(chan struct{}),
	}
	go eb.cleanupLoop()
	return eb
}

// Stop halts the background cleanup goroutine. Safe to call more than once.
func (eb *EventBuffer) Stop() {
	eb.stopped.Do(func() { close(eb.stop) })
}

func (eb *EventBuffer) cleanupLoop() {
	ticker := time.NewTicker(bufferSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-eb.stop:
			return
		case <-ticker.C:
			eb.evictStale(time.Now())
		}
	}
}

func (eb *EventBuffer) evictStale(now time.Time) {
	cutoff := now.Add(-eb.maxAge)

	eb.mu.Lock()
	var evicted []string
	for id, buf := range eb.events {
		if len(buf) == 0 || buf[len(buf)-1].Time.Before(cutoff) {
			delete(eb.events, id)
			evicted = append(evicted, id)
		}
	}
	eb.mu.Unlock()

	if eb.onEvict != nil {
		for _, id := range evicted {
			eb.onEvict(id)
		}
	}
}

// Append stores an event, dropping the oldest beyond maxLen.
func (eb *EventBuffer) Append(searchID string, event *Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	buf := append(eb.events[searchID], *event)
	if len(buf) > eb.maxLen {
		buf = buf[len(buf)-eb.maxLen:]
	}

	eb.events[searchID] = buf
}

// Since returns the events of a search with ID > lastEventID.
func (eb *EventBuffer) Since(searchID string, lastEventID uint64) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	buf := eb.events[searchID]

	// Binary search for the first event with ID > lastEventID.
	lo, hi := 0, len(buf)
	for lo < hi {
		mid := (lo + hi) / 2
		if buf[mid].ID <= lastEventID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	if lo >= len(buf) {
		return nil
	}

	result := make([]Event, len(buf)-lo)
	copy(result, buf[lo:])
	return result
}

// OldestID returns the oldest buffered event ID for a search, or 0 if empty.
func (eb *EventBuffer) OldestID(searchID string) uint64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	buf := eb.events[searchID]
	if len(buf) == 0 {
		return 0
	}
	return buf[0].ID
}
