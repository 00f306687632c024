package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/prodfloor/internal/api/domain"
	"github.com/cuongbtq/prodfloor/internal/metrics"
)

// Source is the repository a Snapshot materializes
type Source interface {
	Jobs(ctx context.Context) ([]domain.Job, error)
}

// Snapshot caches the full job sequence of a Source in memory. It reloads on
// the next read after Invalidate or once ttl has elapsed. A ttl <= 0 disables
// caching and every read goes to the Source.
type Snapshot struct {
	source Source
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	jobs     []domain.Job
	loadedAt time.Time
	loaded   bool
	stale    bool
}

// NewSnapshot creates a snapshot over source
func NewSnapshot(source Source, ttl time.Duration, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = slog.Default()
	}

	return &Snapshot{
		source: source,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Jobs returns a copy of the cached jobs, loading them first if needed
func (s *Snapshot) Jobs(ctx context.Context) ([]domain.Job, error) {
	if !s.Caching() {
		jobs, err := s.source.Jobs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		return jobs, nil
	}

	s.mu.RLock()
	if reason := s.reloadReason(); reason == "" {
		out := cloneJobs(s.jobs)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// another reader may have reloaded while we waited for the write lock
	reason := s.reloadReason()
	if reason == "" {
		return cloneJobs(s.jobs), nil
	}

	jobs, err := s.source.Jobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh catalog: %w", err)
	}

	s.jobs = jobs
	s.loadedAt = s.now()
	s.loaded = true
	s.stale = false

	metrics.CatalogRefreshes.WithLabelValues(reason).Inc()
	s.logger.Info("Catalog snapshot loaded",
		slog.String("reason", reason),
		slog.Int("job_count", len(jobs)),
	)

	return cloneJobs(s.jobs), nil
}

// Caching reports whether reads are served from memory
func (s *Snapshot) Caching() bool {
	return s.ttl > 0
}

// Invalidate marks the snapshot stale so the next read reloads it
func (s *Snapshot) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()

	s.logger.Debug("Catalog snapshot invalidated")
}

// reloadReason must be called with s.mu held
func (s *Snapshot) reloadReason() string {
	switch {
	case !s.loaded:
		return "initial"
	case s.stale:
		return "invalidated"
	case s.now().Sub(s.loadedAt) >= s.ttl:
		return "expired"
	default:
		return ""
	}
}

func cloneJobs(jobs []domain.Job) []domain.Job {
	out := make([]domain.Job, len(jobs))
	copy(out, jobs)
	return out
}
