package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/txlink/internal/domain"
	"github.com/persistorai/txlink/internal/metrics"
	"github.com/persistorai/txlink/internal/models"
)

// Compile-time check: *SearchWorker must satisfy domain.SearchQueue.
var _ domain.SearchQueue = (*SearchWorker)(nil)

// Searcher runs one search under a caller-chosen id.
type Searcher interface {
	FindConnectionWithID(ctx context.Context, id string, req models.SearchRequest) (*models.SearchResult, error)
}

// SearchWorker runs submitted searches in the background on a fixed number
// of goroutines. Searches are not retried; the ledger client already retries
// individual calls.
type SearchWorker struct {
	searcher    Searcher
	jobs        *JobStore
	log         *logrus.Logger
	queue       chan string
	concurrency int
}

// NewSearchWorker creates a worker with the given queue capacity and concurrency.
func NewSearchWorker(searcher Searcher, jobs *JobStore, log *logrus.Logger, queueSize, concurrency int) *SearchWorker {
	if queueSize <= 0 {
		queueSize = 100
	}
	if concurrency <= 0 {
		concurrency = 2
	}

	return &SearchWorker{
		searcher:    searcher,
		jobs:        jobs,
		log:         log,
		queue:       make(chan string, queueSize),
		concurrency: concurrency,
	}
}

// Submit validates req, registers a queued job and enqueues it. Non-blocking;
// returns models.ErrQueueFull when the queue is saturated.
func (w *SearchWorker) Submit(req models.SearchRequest) (*models.SearchJob, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &models.SearchJob{
		ID:        uuid.NewString(),
		State:     models.JobQueued,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}

	w.jobs.Put(job)

	select {
	case w.queue <- job.ID:
		metrics.SearchQueueDepth.Set(float64(len(w.queue)))
	default:
		w.jobs.Remove(job.ID)
		w.log.WithField("search_id", job.ID).Warn("search queue full, rejecting job")

		return nil, models.ErrQueueFull
	}

	return job, nil
}

// GetJob returns the current state of a submitted search.
func (w *SearchWorker) GetJob(id string) (*models.SearchJob, error) {
	return w.jobs.Get(id)
}

// Run spawns N worker goroutines and blocks until the context is cancelled
// and all workers have stopped. Call in a goroutine.
func (w *SearchWorker) Run(ctx context.Context) {
	var wg sync.WaitGroup

	w.log.WithField("concurrency", w.concurrency).Info("starting search workers")

	for i := range w.concurrency {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.runWorker(ctx, id)
		}(i)
	}

	wg.Wait()
	w.log.Info("all search workers stopped")
}

func (w *SearchWorker) runWorker(ctx context.Context, id int) {
	w.log.WithField("worker_id", id).Debug("search worker started")
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-w.queue:
			metrics.SearchQueueDepth.Set(float64(len(w.queue)))
			w.process(ctx, jobID)
		}
	}
}

func (w *SearchWorker) process(ctx context.Context, id string) {
	job, err := w.jobs.Get(id)
	if err != nil {
		w.log.WithField("search_id", id).Warn("queued search expired before it ran")
		return
	}

	w.setState(id, func(j *models.SearchJob) { j.State = models.JobRunning })

	res, err := w.searcher.FindConnectionWithID(ctx, id, job.Request)
	if err != nil {
		w.log.WithError(err).WithField("search_id", id).Warn("background search failed")
		w.setState(id, func(j *models.SearchJob) {
			j.State = models.JobFailed
			j.Error = err.Error()
		})

		return
	}

	w.setState(id, func(j *models.SearchJob) {
		j.State = models.JobDone
		j.Result = res
	})
}

func (w *SearchWorker) setState(id string, fn func(*models.SearchJob)) {
	if err := w.jobs.Update(id, fn); err != nil {
		w.log.WithError(err).WithField("search_id", id).Debug("search job evicted")
	}
}
