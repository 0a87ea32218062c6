// Package memory provides in-memory stores for jobs and archives.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/articlegen/internal/article"
)

const maxIDAttempts = 5

// JobStore is the process-wide job registry. It has no persistence.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]article.Job
	seq   map[string]uint64
	next  uint64
	idGen article.IDGenerator
	clock article.Clock
}

// NewJobStore constructs a JobStore.
func NewJobStore(idGen article.IDGenerator, clock article.Clock) *JobStore {
	return &JobStore{
		jobs:  make(map[string]article.Job),
		seq:   make(map[string]uint64),
		idGen: idGen,
		clock: clock,
	}
}

// CreateJob allocates a pending job with a fresh id.
func (s *JobStore) CreateJob(_ context.Context, totalArticles int, provider article.ProviderName) (article.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := s.idGen.NewID()
		if err != nil {
			return article.Job{}, fmt.Errorf("generate job id: %w", err)
		}
		if _, exists := s.jobs[id]; exists {
			continue
		}
		job := article.Job{
			ID:            id,
			Status:        article.JobStatusPending,
			Provider:      provider,
			TotalArticles: totalArticles,
			SubmittedAt:   s.clock.Now(),
		}
		s.jobs[id] = job
		s.next++
		s.seq[id] = s.next
		return job, nil
	}
	return article.Job{}, fmt.Errorf("generate job id: %d collisions", maxIDAttempts)
}

// GetJob fetches a job by ID. The boolean is false for unknown ids.
func (s *JobStore) GetJob(_ context.Context, jobID string) (article.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	return job, ok
}

// UpdateJob merges update into the stored job. Unknown ids are ignored.
func (s *JobStore) UpdateJob(_ context.Context, jobID string, update article.JobUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	s.jobs[jobID] = update.Apply(job)
}

// ListJobs returns a snapshot of all jobs in the order they were created.
// Jobs sharing a SubmittedAt millisecond keep their creation order.
func (s *JobStore) ListJobs(_ context.Context) []article.Job {
	type ordered struct {
		seq uint64
		job article.Job
	}
	s.mu.RLock()
	rows := make([]ordered, 0, len(s.jobs))
	for id, job := range s.jobs {
		rows = append(rows, ordered{seq: s.seq[id], job: job})
	}
	s.mu.RUnlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]article.Job, len(rows))
	for i, r := range rows {
		out[i] = r.job
	}
	return out
}

// DeleteJob drops a job record.
func (s *JobStore) DeleteJob(_ context.Context, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	delete(s.seq, jobID)
}
