package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/samcutley/intelwatch/internal/api/middleware"
	"github.com/samcutley/intelwatch/internal/logger"
	"github.com/samcutley/intelwatch/internal/repository"
	"github.com/samcutley/intelwatch/internal/service"
)

// JobHandler handles crawl job endpoints.
type JobHandler struct {
	jobs    *repository.CrawlJobRepository
	sources *repository.SourceRepository
	crawler *service.CrawlService
}

// NewJobHandler creates a new job handler.
// Parameters:
//   - jobs: crawl job repository.
//   - sources: source repository.
//   - crawler: crawl orchestrator for manual triggers, may be nil.
//
// Returns:
//   - *JobHandler: initialized handler.
func NewJobHandler(jobs *repository.CrawlJobRepository, sources *repository.SourceRepository, crawler *service.CrawlService) *JobHandler {
	return &JobHandler{
		jobs:    jobs,
		sources: sources,
		crawler: crawler,
	}
}

// ListJobs handles GET /api/v1/jobs.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *JobHandler) ListJobs(c *gin.Context) {
	sourceID := c.Query("source_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	jobs, err := h.jobs.List(c.Request.Context(), sourceID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJob handles GET /api/v1/jobs/:id.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
		return
	}

	c.JSON(http.StatusOK, job)
}

// triggerRequest is the body for a manual crawl trigger.
type triggerRequest struct {
	SourceID string `json:"source_id" binding:"required"`
}

// TriggerCrawl handles POST /api/v1/jobs/trigger. The crawl runs in the
// background; poll the jobs endpoint for its outcome.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *JobHandler) TriggerCrawl(c *gin.Context) {
	if h.crawler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Crawl triggering is not enabled on this instance",
		})
		return
	}

	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "source_id is required",
		})
		return
	}

	source, err := h.sources.GetByID(c.Request.Context(), req.SourceID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Source not found",
		})
		return
	}

	log := middleware.GetLogger(c)
	go func() {
		ctx := log.WithContext(context.Background())
		if _, err := h.crawler.CrawlSource(ctx, source); err != nil {
			logger.FromContext(ctx).WithError(err).
				WithField(logger.FieldSource, source.Name).
				Error("Triggered crawl failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message":     "Crawl triggered",
		"source_id":   source.ID,
		"source_name": source.Name,
	})
}
