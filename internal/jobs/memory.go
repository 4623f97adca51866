package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the reference in-memory job registry. Records live for the
// lifetime of the daemon with no eviction; that is a documented scaling limit
// of the reference deployment, not an oversight.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

// NewJob creates a pending job for the given upload.
func (s *MemoryStore) NewJob(ctx context.Context, sourcePath, originalFilename string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:               uuid.NewString(),
		SourcePath:       sourcePath,
		OriginalFilename: originalFilename,
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job.Clone()
	s.mu.Unlock()

	return job, nil
}

// GetByID returns a snapshot of the job or ErrNotFound.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

// Update replaces the stored record with the provided job.
func (s *MemoryStore) Update(ctx context.Context, job *Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	if err := checkTransition(current, job); err != nil {
		return err
	}

	job.UpdatedAt = time.Now().UTC()
	s.jobs[job.ID] = job.Clone()
	return nil
}

// List returns job snapshots filtered by status, ordered by creation time.
func (s *MemoryStore) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	filter := make(map[Status]struct{}, len(statuses))
	for _, status := range statuses {
		filter[status] = struct{}{}
	}

	s.mu.RLock()
	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if len(filter) > 0 {
			if _, ok := filter[job.Status]; !ok {
				continue
			}
		}
		out = append(out, job.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// HealthSummary aggregates job counts per lifecycle state.
func (s *MemoryStore) HealthSummary(ctx context.Context) (HealthSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary HealthSummary
	for _, job := range s.jobs {
		summary.count(job.Status)
	}
	return summary, nil
}

// Close releases nothing; it exists to satisfy Store.
func (s *MemoryStore) Close() error { return nil }
