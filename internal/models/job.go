package models

import "time"

// JobState is the lifecycle state of a background search.
type JobState string

// Job states.
const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// SearchJob tracks one background search.
type SearchJob struct {
	ID        string        `json:"id"`
	State     JobState      `json:"state"`
	Request   SearchRequest `json:"request"`
	Result    *SearchResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Finished reports whether the job has reached a terminal state.
func (j *SearchJob) Finished() bool {
	return j.State == JobDone || j.State == JobFailed
}
