package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/samcutley/intelwatch/internal/domain"
	"github.com/samcutley/intelwatch/internal/repository"
)

// IOCHandler handles indicator-of-compromise endpoints.
type IOCHandler struct {
	analysis *repository.AnalysisRepository
}

// NewIOCHandler creates a new IOC handler.
// Parameters:
//   - analysis: analysis repository.
//
// Returns:
//   - *IOCHandler: initialized handler.
func NewIOCHandler(analysis *repository.AnalysisRepository) *IOCHandler {
	return &IOCHandler{analysis: analysis}
}

// ListIOCs handles GET /api/v1/iocs.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *IOCHandler) ListIOCs(c *gin.Context) {
	indicatorType := domain.IndicatorType(c.Query("type"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	indicators, err := h.analysis.ListIndicators(c.Request.Context(), indicatorType, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list indicators: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"indicators": indicators,
		"total":      len(indicators),
		"limit":      limit,
		"offset":     offset,
	})
}
