package client

import (
	"context"
	"net/url"
	"strconv"
)

// ConnectionService runs synchronous connection lookups.
type ConnectionService struct {
	c *Client
}

// Find searches for a path from source to target and waits for the outcome.
// A not-found outcome is a result, not an error.
func (s *ConnectionService) Find(ctx context.Context, source, target string, opts *SearchOptions) (*SearchResult, error) {
	params := url.Values{}
	if opts != nil {
		if opts.MaxDepth > 0 {
			params.Set("depth", strconv.Itoa(opts.MaxDepth))
		}
		if opts.Direction != "" {
			params.Set("direction", opts.Direction)
		}
		if opts.Deadline > 0 {
			params.Set("deadline", opts.Deadline.String())
		}
		if opts.Workers > 0 {
			params.Set("workers", strconv.Itoa(opts.Workers))
		}
		if opts.ProbeTarget {
			params.Set("probe_target", "true")
		}
	}

	var resp SearchResult
	path := "/api/v1/connections/" + url.PathEscape(source) + "/" + url.PathEscape(target)
	if err := s.c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
