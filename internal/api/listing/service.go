package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cuongbtq/prodfloor/internal/api/domain"
	"github.com/cuongbtq/prodfloor/internal/metrics"
)

var (
	// ErrInvalidPageSize is returned when a service is built with a non-positive page size
	ErrInvalidPageSize = errors.New("page size must be greater than 0")
)

// JobRepository yields every job in a stable source order
type JobRepository interface {
	Jobs(ctx context.Context) ([]domain.Job, error)
}

// Result is a single page of jobs plus its paging metadata
type Result struct {
	Jobs       []domain.Job
	PagingInfo domain.PagingInfo
}

// Service answers paginated, category-filtered job listings
type Service struct {
	repo     JobRepository
	pageSize int
	logger   *slog.Logger
}

// NewService creates a listing service with a fixed page size
func NewService(repo JobRepository, pageSize int, logger *slog.Logger) (*Service, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPageSize, pageSize)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:     repo,
		pageSize: pageSize,
		logger:   logger,
	}, nil
}

// PageSize returns the number of items per page
func (s *Service) PageSize() int {
	return s.pageSize
}

// List returns the requested page of jobs. A nil category disables filtering;
// any other value, the empty string included, must match JobType exactly.
// Pages outside the result set produce an empty slice, not an error.
func (s *Service) List(ctx context.Context, category *string, page int) (*Result, error) {
	jobs, err := s.repo.Jobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	filtered := filterByCategory(jobs, category)
	totalItems := len(filtered)

	result := &Result{
		Jobs: pageSlice(filtered, page, s.pageSize),
		PagingInfo: domain.PagingInfo{
			CurrentPage:  page,
			ItemsPerPage: s.pageSize,
			TotalItems:   totalItems,
			TotalPages:   totalPages(totalItems, s.pageSize),
		},
	}

	metrics.ListingQueries.WithLabelValues(filteredLabel(category)).Inc()

	s.logger.Debug("Listed jobs",
		slog.Int("page", page),
		slog.Int("returned", len(result.Jobs)),
		slog.Int("total_items", totalItems),
	)

	return result, nil
}

// Categories returns the distinct non-empty job types in ascending order
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	jobs, err := s.repo.Jobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	seen := make(map[string]struct{})
	categories := []string{}
	for _, job := range jobs {
		if job.JobType == "" {
			continue
		}
		if _, ok := seen[job.JobType]; ok {
			continue
		}
		seen[job.JobType] = struct{}{}
		categories = append(categories, job.JobType)
	}
	sort.Strings(categories)

	return categories, nil
}

func filterByCategory(jobs []domain.Job, category *string) []domain.Job {
	if category == nil {
		return jobs
	}

	filtered := make([]domain.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.JobType == *category {
			filtered = append(filtered, job)
		}
	}
	return filtered
}

// pageSlice skips (page-1)*size items and takes up to size of what remains
func pageSlice(jobs []domain.Job, page, size int) []domain.Job {
	// compare against the page count first so huge page numbers cannot overflow
	if page < 1 || page > totalPages(len(jobs), size) {
		return []domain.Job{}
	}

	start := (page - 1) * size
	end := start + size
	if end > len(jobs) {
		end = len(jobs)
	}

	out := make([]domain.Job, end-start)
	copy(out, jobs[start:end])
	return out
}

func totalPages(totalItems, size int) int {
	return (totalItems + size - 1) / size
}

func filteredLabel(category *string) string {
	if category == nil {
		return "false"
	}
	return "true"
}
