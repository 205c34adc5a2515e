package service

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/persistorai/txlink/internal/models"
)

// Job registry defaults.
const (
	DefaultJobCapacity = 1024
	DefaultJobTTL      = time.Hour
)

// JobStore tracks background searches. Entries expire after their TTL and the
// least recently used ones are evicted beyond capacity.
type JobStore struct {
	mu   sync.Mutex
	jobs *expirable.LRU[string, *models.SearchJob]
}

// NewJobStore creates a JobStore.
func NewJobStore(capacity int, ttl time.Duration) *JobStore {
	if capacity <= 0 {
		capacity = DefaultJobCapacity
	}

	if ttl <= 0 {
		ttl = DefaultJobTTL
	}

	return &JobStore{jobs: expirable.NewLRU[string, *models.SearchJob](capacity, nil, ttl)}
}

// Put stores a copy of job.
func (s *JobStore) Put(job *models.SearchJob) {
	cp := *job

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs.Add(job.ID, &cp)
}

// Get returns a copy of the job with the given id.
func (s *JobStore) Get(id string) (*models.SearchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs.Peek(id)
	if !ok {
		return nil, models.ErrSearchNotFound
	}

	cp := *job

	return &cp, nil
}

// Update applies fn to the stored job and bumps its UpdatedAt.
func (s *JobStore) Update(id string, fn func(*models.SearchJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs.Peek(id)
	if !ok {
		return models.ErrSearchNotFound
	}

	cp := *job
	fn(&cp)
	cp.UpdatedAt = time.Now().UTC()
	s.jobs.Add(id, &cp)

	return nil
}

// Remove deletes a job.
func (s *JobStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs.Remove(id)
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	return s.jobs.Len()
}
