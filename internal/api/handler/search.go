package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/samcutley/intelwatch/internal/repository"
)

// SearchHandler handles article text search.
type SearchHandler struct {
	articles *repository.ArticleRepository
}

// NewSearchHandler creates a new search handler.
// Parameters:
//   - articles: article repository.
//
// Returns:
//   - *SearchHandler: initialized handler.
func NewSearchHandler(articles *repository.ArticleRepository) *SearchHandler {
	return &SearchHandler{articles: articles}
}

// Search handles GET /api/v1/search.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *SearchHandler) Search(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter q is required",
		})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	articles, err := h.articles.Search(c.Request.Context(), term, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Search failed: " + err.Error(),
		})
		return
	}

	for i := range articles {
		articles[i].Content = ""
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   term,
		"results": articles,
		"total":   len(articles),
	})
}
