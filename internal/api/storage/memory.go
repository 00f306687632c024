package storage

import (
	"context"
	"sync"

	"github.com/cuongbtq/prodfloor/internal/api/domain"
)

// MemoryRepository keeps jobs in a slice, in the order they were added
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs []domain.Job
}

func NewMemoryRepository(jobs ...domain.Job) *MemoryRepository {
	r := &MemoryRepository{}
	r.jobs = append(r.jobs, jobs...)
	return r
}

// Jobs returns a copy of the stored jobs
func (r *MemoryRepository) Jobs(ctx context.Context) ([]domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Job, len(r.jobs))
	copy(out, r.jobs)
	return out, nil
}

func (r *MemoryRepository) GetJobByID(ctx context.Context, jobID int64) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, job := range r.jobs {
		if job.JobID == jobID {
			found := job
			return &found, nil
		}
	}
	return nil, domain.ErrJobNotFound
}

// Replace swaps the whole job sequence, as a bulk reload would
func (r *MemoryRepository) Replace(jobs []domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs = make([]domain.Job, len(jobs))
	copy(r.jobs, jobs)
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}
