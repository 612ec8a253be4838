package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samcutley/intelwatch/internal/config"
	"github.com/samcutley/intelwatch/internal/domain"
	"github.com/samcutley/intelwatch/internal/repository"
)

// SourceHandler handles source-related endpoints.
type SourceHandler struct {
	sources *repository.SourceRepository
}

// NewSourceHandler creates a new source handler.
// Parameters:
//   - sources: source repository.
//
// Returns:
//   - *SourceHandler: initialized handler.
func NewSourceHandler(sources *repository.SourceRepository) *SourceHandler {
	return &SourceHandler{sources: sources}
}

// ListSources handles GET /api/v1/sources.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *SourceHandler) ListSources(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	sources, err := h.sources.List(c.Request.Context(), activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list sources: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"total":   len(sources),
	})
}

type createSourceRequest struct {
	Name     string            `json:"name" binding:"required"`
	BaseURL  string            `json:"base_url" binding:"required"`
	Type     string            `json:"type"`
	IsActive bool              `json:"is_active"`
	Rules    domain.CrawlRules `json:"rules"`
}

// CreateSource handles POST /api/v1/sources. An existing source with the
// same name is updated in place, matching how configured sources sync.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *SourceHandler) CreateSource(c *gin.Context) {
	var req createSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	sc := config.SourceConfig{
		Name:     req.Name,
		BaseURL:  req.BaseURL,
		Type:     req.Type,
		IsActive: req.IsActive,
		Rules:    req.Rules,
	}
	if err := sc.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	source, err := h.sources.GetOrCreate(c.Request.Context(), &domain.Source{
		Name:     req.Name,
		BaseURL:  req.BaseURL,
		Type:     domain.SourceType(req.Type),
		IsActive: req.IsActive,
		Rules:    req.Rules,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save source: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, source)
}

// GetSource handles GET /api/v1/sources/:id.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *SourceHandler) GetSource(c *gin.Context) {
	id := c.Param("id")

	source, err := h.sources.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Source not found",
		})
		return
	}

	c.JSON(http.StatusOK, source)
}
