// Package service provides business logic between API handlers and the
// remote ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/txlink/internal/domain"
	"github.com/persistorai/txlink/internal/metrics"
	"github.com/persistorai/txlink/internal/models"
)

// Compile-time check: *ConnectionService must satisfy domain.ConnectionFinder.
var _ domain.ConnectionFinder = (*ConnectionService)(nil)

// ConnectionService finds chains of transfers between two addresses by
// breadth-first expansion of the transaction graph.
type ConnectionService struct {
	fetcher domain.TransactionFetcher
	sink    domain.EventSink
	log     *logrus.Logger
}

// NewConnectionService creates a ConnectionService. A nil sink discards events.
func NewConnectionService(fetcher domain.TransactionFetcher, sink domain.EventSink, log *logrus.Logger) *ConnectionService {
	if sink == nil {
		sink = discardSink{}
	}

	return &ConnectionService{fetcher: fetcher, sink: sink, log: log}
}

// FindConnection searches for a path from req.Source to req.Target of at most
// req.MaxDepth hops.
//
// A not-found result is not an error. Only invalid input, a failed expansion
// of the source and caller cancellation are reported as errors.
func (s *ConnectionService) FindConnection(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	return s.FindConnectionWithID(ctx, uuid.NewString(), req)
}

// FindConnectionWithID is FindConnection with a caller-chosen search id, used
// so background jobs and their event streams share one id.
func (s *ConnectionService) FindConnectionWithID(ctx context.Context, id string, req models.SearchRequest) (*models.SearchResult, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	st := &search{
		svc:     s,
		id:      id,
		req:     req,
		start:   time.Now(),
		visited: map[models.Address]struct{}{req.Source: {}},
		parent:  make(map[models.Address]hop),
	}

	st.emit(models.SearchEvent{Type: models.EventSearchStarted, Address: req.Source})

	if req.Source == req.Target {
		return st.found(), nil
	}

	searchCtx := ctx
	if req.Deadline > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, req.Deadline)
		defer cancel()
	}

	res, err := st.run(ctx, searchCtx)
	if err != nil {
		st.fail(err)

		return nil, err
	}

	return res, nil
}

// hop links an address to the address it was discovered from.
type hop struct {
	prev models.Address
	edge models.Edge
}

// search is the state of one FindConnection call. Fields below mu are shared
// by the workers of a level.
type search struct {
	svc   *ConnectionService
	id    string
	req   models.SearchRequest
	start time.Time

	mu      sync.Mutex
	visited map[models.Address]struct{}
	parent  map[models.Address]hop
	next    []models.Address
	hit     bool
	stats   models.SearchStats
}

// run walks the graph level by level. callerCtx distinguishes caller
// cancellation from the search's own deadline.
func (st *search) run(callerCtx, ctx context.Context) (*models.SearchResult, error) {
	if st.req.ProbeTarget {
		edges, err := st.fetch(ctx, st.req.Target)
		if err != nil {
			if ctx.Err() != nil {
				return st.interrupted(callerCtx)
			}

			return nil, fmt.Errorf("probing target %s: %w", st.req.Target, err)
		}

		if len(edges) == 0 {
			return st.notFound(models.ReasonFrontierExhausted), nil
		}
	}

	frontier := []models.Address{st.req.Source}

	for depth := 0; ; depth++ {
		if len(frontier) == 0 {
			return st.notFound(models.ReasonFrontierExhausted), nil
		}

		if depth >= st.req.MaxDepth {
			return st.notFound(models.ReasonMaxDepthReached), nil
		}

		st.svc.log.WithFields(logrus.Fields{
			"search_id": st.id,
			"depth":     depth,
			"frontier":  len(frontier),
		}).Debug("expanding level")

		if err := st.expandLevel(ctx, frontier, depth); err != nil {
			return nil, err
		}

		if st.hit {
			return st.found(), nil
		}

		if ctx.Err() != nil {
			return st.interrupted(callerCtx)
		}

		frontier, st.next = st.next, nil
	}
}

// expandLevel fetches every frontier address through a bounded worker pool.
// Discovering the target cancels the level: in-flight fetches unwind through
// their contexts and pending ones never start.
func (st *search) expandLevel(ctx context.Context, frontier []models.Address, depth int) error {
	levelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(levelCtx)
	g.SetLimit(st.req.Workers)

	st.mu.Lock()
	st.stats.Depth = depth + 1
	st.mu.Unlock()

	for _, addr := range frontier {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			edges, err := st.fetch(gctx, addr)
			if err != nil {
				if levelCtx.Err() != nil {
					return nil
				}

				if depth == 0 {
					return fmt.Errorf("expanding source %s: %w", addr, err)
				}

				st.nodeFailed(addr, depth, err)

				return nil
			}

			st.absorb(addr, depth, edges, cancel)

			return nil
		})
	}

	return g.Wait()
}

func (st *search) fetch(ctx context.Context, addr models.Address) ([]models.Edge, error) {
	st.mu.Lock()
	st.stats.Calls++
	st.mu.Unlock()

	return st.svc.fetcher.FetchTransactions(ctx, addr, st.req.Page)
}

// absorb folds one expansion into the shared search state. It cancels the
// level when the target is discovered.
func (st *search) absorb(addr models.Address, depth int, edges []models.Edge, cancel context.CancelFunc) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.hit {
		return
	}

	st.stats.Expanded++
	metrics.NodesExpanded.Inc()
	st.emit(models.SearchEvent{Type: models.EventNodeExpanded, Address: addr, Depth: depth, Count: len(edges)})

	for i := range edges {
		e := edges[i]
		st.stats.TxExamined++
		st.emit(models.SearchEvent{Type: models.EventTxExamined, Address: addr, Depth: depth, Edge: &e})

		nb, ok := e.Neighbor(addr, st.req.Direction)
		if !ok {
			continue
		}

		if _, seen := st.visited[nb]; seen {
			continue
		}

		st.parent[nb] = hop{prev: addr, edge: e}
		st.visited[nb] = struct{}{}

		if nb == st.req.Target {
			st.hit = true
			cancel()

			return
		}

		st.next = append(st.next, nb)
	}
}

func (st *search) nodeFailed(addr models.Address, depth int, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.stats.Failed++
	st.emit(models.SearchEvent{Type: models.EventNodeFailed, Address: addr, Depth: depth, Error: err.Error()})
}

// interrupted maps an expired search context to its outcome: caller
// cancellation is an error, an expired deadline is a not-found result.
func (st *search) interrupted(callerCtx context.Context) (*models.SearchResult, error) {
	if err := callerCtx.Err(); err != nil && errors.Is(err, context.Canceled) {
		return nil, err
	}

	return st.notFound(models.ReasonDeadlineExceeded), nil
}

func (st *search) found() *models.SearchResult {
	res := st.result(models.StatusFound, "")

	addrs := []models.Address{st.req.Target}
	path := []models.Edge{}

	for at := st.req.Target; at != st.req.Source; {
		h := st.parent[at]
		path = append(path, h.edge)
		addrs = append(addrs, h.prev)
		at = h.prev
	}

	slices.Reverse(path)
	slices.Reverse(addrs)

	res.Path, res.Addresses = path, addrs
	st.finish(models.EventSearchFound, res, "found")

	return res
}

func (st *search) notFound(reason models.NotFoundReason) *models.SearchResult {
	res := st.result(models.StatusNotFound, reason)
	st.finish(models.EventSearchNotFound, res, string(reason))

	return res
}

func (st *search) result(status models.SearchStatus, reason models.NotFoundReason) *models.SearchResult {
	st.mu.Lock()
	stats := st.stats
	stats.Visited = len(st.visited)
	st.mu.Unlock()

	stats.Duration = time.Since(st.start)

	return &models.SearchResult{
		ID:       st.id,
		Status:   status,
		Reason:   reason,
		Source:   st.req.Source,
		Target:   st.req.Target,
		MaxDepth: st.req.MaxDepth,
		Stats:    stats,
	}
}

func (st *search) finish(typ models.SearchEventType, res *models.SearchResult, outcome string) {
	metrics.SearchesTotal.WithLabelValues(outcome).Inc()
	st.emit(models.SearchEvent{Type: typ, Address: st.req.Target, Depth: res.Stats.Depth, Result: res})
}

func (st *search) fail(err error) {
	outcome := "failed"
	if errors.Is(err, context.Canceled) {
		outcome = "canceled"
	}

	metrics.SearchesTotal.WithLabelValues(outcome).Inc()
	st.emit(models.SearchEvent{Type: models.EventSearchFailed, Address: st.req.Source, Error: err.Error()})
}

func (st *search) emit(ev models.SearchEvent) {
	ev.SearchID = st.id
	ev.Time = time.Now()
	st.svc.sink.Emit(ev)
}
