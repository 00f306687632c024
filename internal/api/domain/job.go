package domain

import (
	"errors"
)

// Job is a unit of production work listed on the floor
type Job struct {
	JobID   int64
	Name    string
	JobType string // empty when the job has no type
}

// PagingInfo describes where a page sits inside the filtered result set
type PagingInfo struct {
	CurrentPage  int
	ItemsPerPage int
	TotalItems   int
	TotalPages   int
}

var (
	ErrJobNotFound = errors.New("job not found")
)
