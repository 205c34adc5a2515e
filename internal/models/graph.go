package models

import "time"

// Search limits applied to caller-supplied requests.
const (
	DefaultMaxDepth = 3
	MaxWorkers      = 16
)

// SearchRequest describes one connection search.
type SearchRequest struct {
	Source    Address       `json:"source"`
	Target    Address       `json:"target"`
	MaxDepth  int           `json:"max_depth"`
	Direction Direction     `json:"direction,omitempty"`
	Deadline  time.Duration `json:"deadline,omitempty"`
	Workers   int           `json:"workers,omitempty"`
	// ProbeTarget fetches the target once before the walk so a bad target
	// fails fast and an inactive one short-circuits to not found.
	ProbeTarget bool        `json:"probe_target,omitempty"`
	Page        PageOptions `json:"-"`
}

// Normalize lowercases both endpoints and validates the request.
func (r *SearchRequest) Normalize() error {
	src, err := ParseAddress(string(r.Source))
	if err != nil {
		return err
	}

	dst, err := ParseAddress(string(r.Target))
	if err != nil {
		return err
	}

	r.Source, r.Target = src, dst

	if r.MaxDepth < 1 {
		return ErrInvalidDepth
	}

	dir, err := ParseDirection(string(r.Direction))
	if err != nil {
		return err
	}
	r.Direction = dir

	if r.Workers <= 0 {
		r.Workers = 1
	}

	if r.Workers > MaxWorkers {
		return ErrFieldTooLarge("workers", MaxWorkers)
	}

	if r.Deadline < 0 {
		r.Deadline = 0
	}

	return nil
}

// SearchStatus is the outcome of a finished search.
type SearchStatus string

// Search outcomes.
const (
	StatusFound    SearchStatus = "found"
	StatusNotFound SearchStatus = "not_found"
)

// NotFoundReason explains a not-found outcome.
type NotFoundReason string

// Not-found reasons. None of them proves the addresses are unconnected.
const (
	ReasonFrontierExhausted NotFoundReason = "frontier_exhausted"
	ReasonMaxDepthReached   NotFoundReason = "max_depth_reached"
	ReasonDeadlineExceeded  NotFoundReason = "deadline_exceeded"
)

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

// SearchResult is returned once per search and never mutated afterwards.
type SearchResult struct {
	ID       string         `json:"id"`
	Status   SearchStatus   `json:"status"`
	Reason   NotFoundReason `json:"reason,omitempty"`
	Source   Address        `json:"source"`
	Target   Address        `json:"target"`
	MaxDepth int            `json:"max_depth"`
	// Path lists the connecting transfers from source to target as recorded
	// on chain; a hop may run against the transfer direction.
	Path []Edge `json:"path"`
	// Addresses is the walk order, source first and target last.
	Addresses []Address   `json:"addresses"`
	Stats     SearchStats `json:"stats"`
}

// Found reports whether a connecting path was discovered.
func (r *SearchResult) Found() bool { return r.Status == StatusFound }

// DeadlineExceeded reports whether the search stopped on its wall-clock deadline.
func (r *SearchResult) DeadlineExceeded() bool { return r.Reason == ReasonDeadlineExceeded }
