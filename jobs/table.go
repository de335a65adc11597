package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MaxRetainedJobs is the default job table capacity.
const MaxRetainedJobs = 10000

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusRunning:
		return 1
	case StatusSucceeded, StatusFailed:
		return 2
	}
	return -1
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s.rank() == 2
}

// Job is a snapshot of one asynchronous ingestion.
type Job struct {
	ID        string    `json:"job_id"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	File      string    `json:"file,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Table is a bounded, mutex-guarded job store. Lookups do not refresh
// recency, so the oldest jobs are evicted first.
type Table struct {
	mu   sync.Mutex
	jobs *lru.Cache[string, *Job]
	now  func() time.Time
}

// NewTable creates a table that retains at most capacity jobs.
func NewTable(capacity int) (*Table, error) {
	if capacity <= 0 {
		capacity = MaxRetainedJobs
	}
	cache, err := lru.New[string, *Job](capacity)
	if err != nil {
		return nil, fmt.Errorf("create job table: %w", err)
	}
	return &Table{jobs: cache, now: time.Now}, nil
}

// Create registers a new queued job.
func (t *Table) Create(file string) Job {
	now := t.now()
	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		File:      file,
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs.Add(job.ID, job)
	return *job
}

// Get returns a snapshot of the job.
func (t *Table) Get(id string) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs.Peek(id)
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return *job, nil
}

// Transition advances a job to status. errMsg is recorded only for failed
// jobs. Moving to an earlier or equal state, or out of a terminal state,
// returns ErrInvalidTransition.
func (t *Table) Transition(id string, status Status, errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs.Peek(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if status.rank() <= job.Status.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, status)
	}

	job.Status = status
	job.UpdatedAt = t.now()
	if status == StatusFailed {
		job.Error = errMsg
	}
	return nil
}

// Len returns the number of retained jobs.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jobs.Len()
}
