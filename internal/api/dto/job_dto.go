package dto

import "github.com/cuongbtq/prodfloor/internal/api/domain"

type ListJobsResponse struct {
	Jobs       []JobDTO      `json:"jobs"`
	PagingInfo PagingInfoDTO `json:"paging_info"`
}

type JobDTO struct {
	JobID   int64  `json:"job_id"`
	Name    string `json:"name"`
	JobType string `json:"job_type"`
}

type PagingInfoDTO struct {
	CurrentPage  int `json:"current_page"`
	ItemsPerPage int `json:"items_per_page"`
	TotalItems   int `json:"total_items"`
	TotalPages   int `json:"total_pages"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

func NewJobDTO(job domain.Job) JobDTO {
	return JobDTO{
		JobID:   job.JobID,
		Name:    job.Name,
		JobType: job.JobType,
	}
}

func NewListJobsResponse(jobs []domain.Job, info domain.PagingInfo) ListJobsResponse {
	out := make([]JobDTO, len(jobs))
	for i, job := range jobs {
		out[i] = NewJobDTO(job)
	}

	return ListJobsResponse{
		Jobs: out,
		PagingInfo: PagingInfoDTO{
			CurrentPage:  info.CurrentPage,
			ItemsPerPage: info.ItemsPerPage,
			TotalItems:   info.TotalItems,
			TotalPages:   info.TotalPages,
		},
	}
}
