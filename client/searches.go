package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// defaultPollInterval is used by Wait when no interval is given.
const defaultPollInterval = time.Second

// SearchService handles background searches.
type SearchService struct {
	c *Client
}

// Submit queues a search and returns its id. The server answers 503 with
// code "queue_full" when saturated; see IsQueueFull.
func (s *SearchService) Submit(ctx context.Context, source, target string, opts *SearchOptions) (*CreateSearchResponse, error) {
	req := CreateSearchRequest{Source: source, Target: target}
	if opts != nil {
		req.MaxDepth = opts.MaxDepth
		req.Direction = opts.Direction
		req.Workers = opts.Workers
		req.ProbeTarget = opts.ProbeTarget
		if opts.Deadline > 0 {
			req.Deadline = opts.Deadline.String()
		}
	}

	var resp CreateSearchResponse
	if err := s.c.post(ctx, "/api/v1/searches", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get returns the current state of a background search.
func (s *SearchService) Get(ctx context.Context, id string) (*SearchJob, error) {
	var resp SearchJob
	if err := s.c.get(ctx, "/api/v1/searches/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Wait polls a background search until it finishes or ctx is done.
func (s *SearchService) Wait(ctx context.Context, id string, interval time.Duration) (*SearchJob, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Finished() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, fmt.Errorf("waiting for search %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}
