// Package jobstore keeps the in-process registry of harvest jobs.
//
// Job state is volatile: it lives for the process lifetime only. All
// mutation goes through Store methods, which serialize read-modify-
// write per job under one lock so counter updates are never lost.
package jobstore

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is a concurrency-safe registry of Jobs.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// Create allocates a job in Queued state with the given provisional
// total and returns a snapshot of it.
func (s *Store) Create(input Input, total int) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	job := &Job{
		ID:          uuid.New().String(),
		Status:      StatusQueued,
		Progress:    Progress{Total: total},
		SubmittedAt: now,
		UpdatedAt:   now,
		Input:       input,
	}
	s.jobs[job.ID] = job
	return snapshot(job)
}

// Get returns a snapshot of the job, or false if it does not exist.
func (s *Store) Get(jobID string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return snapshot(job), true
}

// SetStatus updates the job status. No-op if the job is absent.
func (s *Store) SetStatus(jobID string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[jobID]; ok {
		job.Status = status
		job.UpdatedAt = time.Now().UTC()
	}
}

// SetProgressTotal fixes the fan-out denominator for the job.
func (s *Store) SetProgressTotal(jobID string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[jobID]; ok {
		job.Progress.Total = total
		job.UpdatedAt = time.Now().UTC()
	}
}

// AppendResult appends one enriched record and advances the completed
// counter in the same critical section.
func (s *Store) AppendResult(jobID string, result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[jobID]; ok {
		job.Results = append(job.Results, result)
		job.Progress.Completed = len(job.Results)
		job.UpdatedAt = time.Now().UTC()
	}
}

// AppendError appends one human-readable error and advances the error
// counter in the same critical section.
func (s *Store) AppendError(jobID string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[jobID]; ok {
		job.Errors = append(job.Errors, message)
		job.Progress.Errors = len(job.Errors)
		job.UpdatedAt = time.Now().UTC()
	}
}

// List returns snapshots of jobs, newest-submitted-first, truncated to
// limit (no truncation when limit <= 0).
func (s *Store) List(limit int) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, snapshot(job))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// snapshot copies a job so callers never observe in-place mutation.
// Results and Errors slices are copied; the record pointers inside are
// shared but never mutated after append.
func snapshot(job *Job) Job {
	out := *job
	out.Results = append([]Result(nil), job.Results...)
	out.Errors = append([]string(nil), job.Errors...)
	return out
}
