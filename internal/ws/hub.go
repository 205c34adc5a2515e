// Package ws streams search progress events to WebSocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/txlink/internal/domain"
	"github.com/persistorai/txlink/internal/metrics"
	"github.com/persistorai/txlink/internal/models"
)

// Compile-time check: *Hub must satisfy domain.EventSink.
var _ domain.EventSink = (*Hub)(nil)

// Hub channel buffer sizes and connection limits.
const (
	broadcastBuffer     = 1024
	registerBuffer      = 64
	maxClients          = 1000
	maxClientsPerSearch = 20
)

// searchBroadcast is sent through the broadcast channel to the Run goroutine.
type searchBroadcast struct {
	searchID string
	msg      []byte
}

// Hub manages active WebSocket clients and broadcasts search events to the
// clients subscribed to each search. All client map mutations happen
// exclusively in the Run goroutine.
type Hub struct {
	clients     map[*Client]bool
	searchCount map[string]int
	register    chan *Client
	unregister  chan *Client
	broadcast   chan searchBroadcast
	shutdown    chan struct{} // signals Run to begin graceful drain
	done        chan struct{} // closed when Run has finished draining
	count       atomic.Int64
	log         *logrus.Logger
	seq         *EventSequence
	buffer      *EventBuffer
	skipTx      bool
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithoutTxEvents stops per-transaction events from being streamed.
func WithoutTxEvents() HubOption {
	return func(h *Hub) { h.skipTx = true }
}

// NewHub creates a new Hub instance.
func NewHub(log *logrus.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		clients:     make(map[*Client]bool),
		searchCount: make(map[string]int),
		register:    make(chan *Client, registerBuffer),
		unregister:  make(chan *Client, registerBuffer),
		broadcast:   make(chan searchBroadcast, broadcastBuffer),
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		log:         log,
		seq:         NewEventSequence(),
		buffer:      NewEventBuffer(defaultBufferMaxLen, defaultBufferMaxAge),
	}
	h.buffer.onEvict = h.seq.Forget

	for _, o := range opts {
		o(h)
	}

	return h
}

// drainTimeout is how long the hub waits for clients to flush after shutdown.
const drainTimeout = 3 * time.Second

// Run starts the hub event loop. It should be run as a goroutine.
// It exits when Shutdown is called or the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.buffer.Stop()

	for {
		select {
		case <-ctx.Done():
			h.drainClients()

			return
		case <-h.shutdown:
			h.drainClients()

			return

		case client := <-h.register:
			if len(h.clients) >= maxClients {
				h.log.Warn("global connection limit reached, dropping client")
				client.closeSend()
				continue
			}
			if h.searchCount[client.SearchID] >= maxClientsPerSearch {
				h.log.WithField("search_id", client.SearchID).Warn("per-search connection limit reached, dropping client")
				client.closeSend()
				continue
			}
			h.clients[client] = true
			h.searchCount[client.SearchID]++
			h.updateCount()
			h.log.WithFields(logrus.Fields{
				"search_id": client.SearchID,
				"total":     len(h.clients),
			}).Debug("client registered")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
			}
			h.updateCount()
			h.log.WithField("total", len(h.clients)).Debug("client unregistered")

		case b := <-h.broadcast:
			for client := range h.clients {
				if client.SearchID != b.searchID {
					continue
				}
				select {
				case client.send <- b.msg:
				default:
					// Subscriber too slow: drop it.
					h.remove(client)
				}
			}
			h.updateCount()
		}
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	client.closeSend()
	h.searchCount[client.SearchID]--
	if h.searchCount[client.SearchID] <= 0 {
		delete(h.searchCount, client.SearchID)
	}
}

func (h *Hub) updateCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// maxBroadcastPayload is the maximum allowed event payload size (64 KB).
const maxBroadcastPayload = 64 << 10

// broadcastToSearch queues msg for the clients of searchID. The actual send
// is performed by the Run goroutine.
func (h *Hub) broadcastToSearch(searchID string, msg []byte) {
	if len(msg) > maxBroadcastPayload {
		h.log.WithFields(logrus.Fields{
			"search_id":    searchID,
			"payload_size": len(msg),
			"max_size":     maxBroadcastPayload,
		}).Warn("dropping oversized broadcast payload")
		return
	}
	select {
	case h.broadcast <- searchBroadcast{searchID: searchID, msg: msg}:
	default:
		h.log.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
		// Run loop already exited; client cleanup happened in Run shutdown.
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Emit implements domain.EventSink. It never blocks the search: events that
// cannot be queued are dropped for live subscribers but stay replayable.
func (h *Hub) Emit(ev models.SearchEvent) {
	if h.skipTx && ev.Type == models.EventTxExamined {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal search event")
		return
	}

	h.BroadcastEvent(string(ev.Type), ev.SearchID, data)
}

// BroadcastEvent assigns a sequence ID, stores the event for replay and
// broadcasts it to the subscribers of the search.
func (h *Hub) BroadcastEvent(eventType, searchID string, data json.RawMessage) {
	evt := Event{
		Type:     eventType,
		ID:       h.seq.Next(searchID),
		SearchID: searchID,
		Data:     data,
		Time:     time.Now(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event")
		return
	}

	h.buffer.Append(searchID, &evt)
	h.broadcastToSearch(searchID, msg)
}

// Shutdown initiates a graceful WebSocket drain: sends a shutdown frame to
// every connected client, waits for their write pumps to flush, then closes
// all connections. It blocks until the drain is complete or times out.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

// drainClients sends a close frame to every client and waits for buffers to flush.
func (h *Hub) drainClients() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining WebSocket clients")

	shutdownMsg := []byte(`{"type":"shutdown","message":"server shutting down"}`)
	for client := range h.clients {
		select {
		case client.send <- shutdownMsg:
		default:
		}
	}

	deadline := time.After(drainTimeout)
	ticker := time.NewTicker(50 * time.Millisecond) //nolint:mnd // poll interval
	defer ticker.Stop()

drain:
	for {
		allDrained := true

		for client := range h.clients {
			if len(client.send) > 0 {
				allDrained = false

				break
			}
		}

		if allDrained {
			break
		}

		select {
		case <-deadline:
			h.log.Warn("WebSocket drain timeout, closing remaining clients")

			break drain
		case <-ticker.C:
		}
	}

	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}

	h.searchCount = make(map[string]int)
	h.updateCount()
}

// ReplayEvents sends buffered events since lastEventID to the client.
// Returns false if some requested events have already been evicted.
func (h *Hub) ReplayEvents(client *Client, lastEventID uint64) bool {
	oldest := h.buffer.OldestID(client.SearchID)
	if oldest > 1 && lastEventID+1 < oldest {
		return false
	}

	for _, evt := range h.buffer.Since(client.SearchID, lastEventID) {
		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		select {
		case client.send <- msg:
		default:
			return true // channel full, stop replay
		}
	}
	return true
}
