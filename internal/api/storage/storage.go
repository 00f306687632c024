package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/prodfloor/internal/api/domain"
	"github.com/cuongbtq/prodfloor/internal/api/model"
	"github.com/cuongbtq/prodfloor/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

// Storage reads jobs from PostgreSQL
type Storage struct {
	db     *sqlx.DB
	health func(ctx context.Context) error
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db:     pg.GetDB(),
		health: pg.HealthCheck,
	}
}

// Jobs returns every job ordered by identity, which matches insertion order
func (s *Storage) Jobs(ctx context.Context) ([]domain.Job, error) {
	query := `
		SELECT job_id, name, job_type
		FROM jobs
		ORDER BY job_id
	`

	var rows []model.Job
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]domain.Job, len(rows))
	for i, row := range rows {
		jobs[i] = row.ToDomain()
	}

	return jobs, nil
}

func (s *Storage) GetJobByID(ctx context.Context, jobID int64) (*domain.Job, error) {
	var row model.Job
	query := `
		SELECT job_id, name, job_type
		FROM jobs
		WHERE job_id = $1
	`

	err := s.db.GetContext(ctx, &row, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	job := row.ToDomain()
	return &job, nil
}

// Ping reports whether the database is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return s.health(ctx)
}
