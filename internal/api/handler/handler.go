package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/prodfloor/internal/api/domain"
	"github.com/cuongbtq/prodfloor/internal/api/listing"
)

// JobFinder looks up a single job
type JobFinder interface {
	GetJobByID(ctx context.Context, jobID int64) (*domain.Job, error)
}

// HealthChecker reports whether the job store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Listing *listing.Service
	Finder  JobFinder
	Health  HealthChecker
	Service string
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger  *slog.Logger
	listing *listing.Service
	finder  JobFinder
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:  deps.Logger,
		listing: deps.Listing,
		finder:  deps.Finder,
	}
}
