package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samcutley/intelwatch/internal/repository"
)

// StatsHandler handles aggregate statistics endpoints.
type StatsHandler struct {
	articles *repository.ArticleRepository
	analysis *repository.AnalysisRepository
}

// NewStatsHandler creates a new stats handler.
// Parameters:
//   - articles: article repository.
//   - analysis: analysis repository.
//
// Returns:
//   - *StatsHandler: initialized handler.
func NewStatsHandler(articles *repository.ArticleRepository, analysis *repository.AnalysisRepository) *StatsHandler {
	return &StatsHandler{
		articles: articles,
		analysis: analysis,
	}
}

// GetStats handles GET /api/v1/stats.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *StatsHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	statusCounts, err := h.articles.CountByStatus(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to count articles: " + err.Error(),
		})
		return
	}

	indicatorCounts, err := h.analysis.CountIndicatorsByType(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to count indicators: " + err.Error(),
		})
		return
	}

	var total int64
	for _, n := range statusCounts {
		total += n
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": gin.H{
			"total":     total,
			"by_status": statusCounts,
		},
		"indicators": gin.H{
			"by_type": indicatorCounts,
		},
	})
}
