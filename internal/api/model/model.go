package model

import (
	"database/sql"

	"github.com/cuongbtq/prodfloor/internal/api/domain"
)

// Job mirrors a row of the jobs table
type Job struct {
	JobID   int64          `db:"job_id"`
	Name    string         `db:"name"`
	JobType sql.NullString `db:"job_type"`
}

// ToDomain converts the row into a domain.Job, mapping a NULL job_type to ""
func (j Job) ToDomain() domain.Job {
	return domain.Job{
		JobID:   j.JobID,
		Name:    j.Name,
		JobType: j.JobType.String,
	}
}
