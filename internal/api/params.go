package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/persistorai/txlink/internal/models"
)

// Server-side limits on caller-supplied search parameters.
const (
	// maxSyncDeadline caps the deadline of a search run inside a request.
	maxSyncDeadline = 2 * time.Minute
	maxServerDepth  = 10
)

// searchParams are the tunables shared by synchronous and background searches.
type searchParams struct {
	Depth       int
	Direction   string
	Deadline    string
	Workers     int
	ProbeTarget bool
}

func (p searchParams) request(source, target string) (models.SearchRequest, error) {
	req := models.SearchRequest{
		Source:      models.Address(source),
		Target:      models.Address(target),
		MaxDepth:    p.Depth,
		Direction:   models.Direction(p.Direction),
		Workers:     p.Workers,
		ProbeTarget: p.ProbeTarget,
	}

	if req.MaxDepth == 0 {
		req.MaxDepth = models.DefaultMaxDepth
	}

	if req.MaxDepth > maxServerDepth {
		return req, models.ErrFieldTooLarge("depth", maxServerDepth)
	}

	if p.Deadline != "" {
		d, err := time.ParseDuration(p.Deadline)
		if err != nil || d <= 0 {
			return req, fmt.Errorf("%w: deadline must be a positive duration such as 30s", models.ErrInvalidInput)
		}
		req.Deadline = d
	}

	return req, nil
}

func queryInt(s, field string) (int, error) {
	if s == "" {
		return 0, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", models.ErrInvalidInput, field)
	}

	return v, nil
}
