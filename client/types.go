package client

import "time"

// Edge is one on-chain transfer on a connecting path.
type Edge struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	TxHash      string    `json:"tx_hash"`
	BlockNumber uint64    `json:"block_number,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
	Value       string    `json:"value,omitempty"`
}

// SearchStats counts the work a search performed.
type SearchStats struct {
	Calls      int           `json:"calls"`
	Expanded   int           `json:"expanded"`
	Visited    int           `json:"visited"`
	Failed     int           `json:"failed"`
	TxExamined int           `json:"tx_examined"`
	Depth      int           `json:"depth"`
	Duration   time.Duration `json:"duration_ns"`
}

// Search outcomes and not-found reasons.
const (
	StatusFound    = "found"
	StatusNotFound = "not_found"

	ReasonFrontierExhausted = "frontier_exhausted"
	ReasonMaxDepthReached   = "max_depth_reached"
	ReasonDeadlineExceeded  = "deadline_exceeded"
)

// SearchResult is the outcome of a connection search.
type SearchResult struct {
	ID        string      `json:"id"`
	Status    string      `json:"status"`
	Reason    string      `json:"reason,omitempty"`
	Source    string      `json:"source"`
	Target    string      `json:"target"`
	MaxDepth  int         `json:"max_depth"`
	Path      []Edge      `json:"path"`
	Addresses []string    `json:"addresses"`
	Stats     SearchStats `json:"stats"`
}

// Found reports whether a connecting path was discovered.
func (r *SearchResult) Found() bool { return r.Status == StatusFound }

// SearchOptions tunes a search. Zero values select the server defaults.
type SearchOptions struct {
	MaxDepth    int
	Direction   string
	Deadline    time.Duration
	Workers     int
	ProbeTarget bool
}

// CreateSearchRequest is the payload for submitting a background search.
type CreateSearchRequest struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	MaxDepth    int    `json:"max_depth,omitempty"`
	Direction   string `json:"direction,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	Workers     int    `json:"workers,omitempty"`
	ProbeTarget bool   `json:"probe_target,omitempty"`
}

// CreateSearchResponse acknowledges a queued search.
type CreateSearchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Job states.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// SearchJob is the state of a background search.
type SearchJob struct {
	ID        string        `json:"id"`
	State     string        `json:"state"`
	Result    *SearchResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Finished reports whether the job has reached a terminal state.
func (j *SearchJob) Finished() bool {
	return j.State == JobDone || j.State == JobFailed
}

// LedgerHealth describes the server's ledger client.
type LedgerHealth struct {
	CacheEntries int     `json:"cache_entries"`
	Rate         float64 `json:"rate_per_second"`
	Penalties    int     `json:"penalties"`
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status        string       `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds float64      `json:"uptime_seconds"`
	Ledger        LedgerHealth `json:"ledger"`
	WSClients     int          `json:"ws_clients"`
}
