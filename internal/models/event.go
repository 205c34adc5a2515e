package models

import "time"

// SearchEventType names a progress event emitted during a search.
type SearchEventType string

// Search event types.
const (
	EventSearchStarted  SearchEventType = "search.started"
	EventNodeExpanded   SearchEventType = "node.expanded"
	EventTxExamined     SearchEventType = "tx.examined"
	EventNodeFailed     SearchEventType = "node.failed"
	EventSearchFound    SearchEventType = "search.found"
	EventSearchNotFound SearchEventType = "search.not_found"
	EventSearchFailed   SearchEventType = "search.failed"
)

// SearchEvent reports progress of one search. Only the fields relevant to
// Type are set.
type SearchEvent struct {
	Type     SearchEventType `json:"type"`
	SearchID string          `json:"search_id"`
	Address  Address         `json:"address,omitempty"`
	Depth    int             `json:"depth"`
	Count    int             `json:"count,omitempty"`
	Edge     *Edge           `json:"edge,omitempty"`
	Error    string          `json:"error,omitempty"`
	Result   *SearchResult   `json:"result,omitempty"`
	Time     time.Time       `json:"time"`
}
