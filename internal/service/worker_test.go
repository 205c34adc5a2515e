package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/persistorai/txlink/internal/models"
)

func waitForJob(t *testing.T, w *SearchWorker, id string) *models.SearchJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := w.GetJob(id)
		if err != nil {
			t.Fatalf("GetJob(%s): %v", id, err)
		}
		if job.Finished() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

func TestSearchWorker_Submit(t *testing.T) {
	tests := []struct {
		name      string
		findErr   error
		wantState models.JobState
	}{
		{name: "done", wantState: models.JobDone},
		{name: "failed", findErr: models.ErrUnauthorized, wantState: models.JobFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotID string
			searcher := &mockSearcher{find: func(_ context.Context, id string, req models.SearchRequest) (*models.SearchResult, error) {
				gotID = id
				if tc.findErr != nil {
					return nil, tc.findErr
				}
				return &models.SearchResult{ID: id, Status: models.StatusFound, Source: req.Source, Target: req.Target}, nil
			}}
			w := NewSearchWorker(searcher, NewJobStore(16, time.Minute), testLogger(), 4, 1)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			job, err := w.Submit(request(addrA, addrB, 2))
			if err != nil {
				t.Fatalf("Submit() error: %v", err)
			}
			if job.State != models.JobQueued {
				t.Errorf("initial state = %q, want queued", job.State)
			}

			final := waitForJob(t, w, job.ID)
			if final.State != tc.wantState {
				t.Errorf("state = %q, want %q", final.State, tc.wantState)
			}
			if gotID != job.ID {
				t.Errorf("search ran with id %q, want job id %q", gotID, job.ID)
			}
			if tc.findErr != nil && final.Error == "" {
				t.Error("failed job has no error message")
			}
			if tc.findErr == nil && (final.Result == nil || !final.Result.Found()) {
				t.Errorf("result = %+v, want found", final.Result)
			}
		})
	}
}

func TestSearchWorker_SubmitInvalid(t *testing.T) {
	w := NewSearchWorker(&mockSearcher{}, NewJobStore(16, time.Minute), testLogger(), 4, 1)

	_, err := w.Submit(request(addrA, "bogus", 2))
	if !errors.Is(err, models.ErrInvalidAddress) {
		t.Fatalf("error = %v, want ErrInvalidAddress", err)
	}
	if w.jobs.Len() != 0 {
		t.Errorf("jobs = %d, want 0", w.jobs.Len())
	}
}

func TestSearchWorker_QueueFull(t *testing.T) {
	w := NewSearchWorker(&mockSearcher{}, NewJobStore(16, time.Minute), testLogger(), 1, 1)

	if _, err := w.Submit(request(addrA, addrB, 2)); err != nil {
		t.Fatalf("first Submit() error: %v", err)
	}

	_, err := w.Submit(request(addrA, addrC, 2))
	if !errors.Is(err, models.ErrQueueFull) {
		t.Fatalf("error = %v, want ErrQueueFull", err)
	}
	if w.jobs.Len() != 1 {
		t.Errorf("jobs = %d, want only the queued one", w.jobs.Len())
	}
}

func TestJobStore(t *testing.T) {
	s := NewJobStore(2, time.Minute)

	if _, err := s.Get("missing"); !errors.Is(err, models.ErrSearchNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrSearchNotFound", err)
	}
	if err := s.Update("missing", func(*models.SearchJob) {}); !errors.Is(err, models.ErrSearchNotFound) {
		t.Fatalf("Update(missing) error = %v, want ErrSearchNotFound", err)
	}

	s.Put(&models.SearchJob{ID: "j1", State: models.JobQueued})

	got, err := s.Get("j1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	got.State = models.JobDone
	if again, _ := s.Get("j1"); again.State != models.JobQueued {
		t.Error("Get must return a copy")
	}

	if err := s.Update("j1", func(j *models.SearchJob) { j.State = models.JobRunning }); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	updated, _ := s.Get("j1")
	if updated.State != models.JobRunning || updated.UpdatedAt.IsZero() {
		t.Errorf("updated job = %+v", updated)
	}

	s.Put(&models.SearchJob{ID: "j2"})
	s.Put(&models.SearchJob{ID: "j3"})
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want capacity 2", s.Len())
	}
}
