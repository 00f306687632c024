package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cuongbtq/prodfloor/internal/api/domain"
	"github.com/cuongbtq/prodfloor/internal/api/dto"
	"github.com/gin-gonic/gin"
)

// ListJobs handles GET /api/v1/jobs
// Lists one page of jobs, optionally filtered by category
func (h *JobHandler) ListJobs(c *gin.Context) {
	h.logger.Info("ListJobs called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
	)

	// absent means no filter, present-but-empty filters on jobs without a type
	var category *string
	if value, ok := c.GetQuery("category"); ok {
		category = &value
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		h.logger.Error("Invalid page parameter", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "page must be an integer",
		})
		return
	}

	result, err := h.listing.List(c.Request.Context(), category, page)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	c.JSON(http.StatusOK, dto.NewListJobsResponse(result.Jobs, result.PagingInfo))
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	rawID := c.Param("job_id")

	h.logger.Info("GetJob called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("job_id", rawID),
	)

	jobID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		h.logger.Error("Invalid job_id format", slog.String("job_id", rawID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be an integer",
		})
		return
	}

	job, err := h.finder.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}

		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(*job))
}

// ListCategories handles GET /api/v1/categories
func (h *JobHandler) ListCategories(c *gin.Context) {
	categories, err := h.listing.Categories(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list categories",
		})
		return
	}

	c.JSON(http.StatusOK, dto.CategoriesResponse{Categories: categories})
}
