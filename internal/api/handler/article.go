package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/samcutley/intelwatch/internal/domain"
	"github.com/samcutley/intelwatch/internal/repository"
)

// ArticleHandler handles article-related endpoints.
type ArticleHandler struct {
	articles *repository.ArticleRepository
	analysis *repository.AnalysisRepository
}

// NewArticleHandler creates a new article handler.
// Parameters:
//   - articles: article repository.
//   - analysis: analysis repository for attached results.
//
// Returns:
//   - *ArticleHandler: initialized handler.
func NewArticleHandler(articles *repository.ArticleRepository, analysis *repository.AnalysisRepository) *ArticleHandler {
	return &ArticleHandler{
		articles: articles,
		analysis: analysis,
	}
}

// ListArticles handles GET /api/v1/articles.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *ArticleHandler) ListArticles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var articles []domain.Article
	var err error
	if sourceID := c.Query("source_id"); sourceID != "" {
		articles, err = h.articles.ListBySource(c.Request.Context(), sourceID, limit, offset)
	} else {
		status := domain.AnalysisStatus(c.Query("status"))
		articles, err = h.articles.ListByStatus(c.Request.Context(), status, limit, offset)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list articles: " + err.Error(),
		})
		return
	}

	// Bodies stay out of list responses; fetch one article for full content.
	for i := range articles {
		articles[i].Content = ""
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"total":    len(articles),
		"limit":    limit,
		"offset":   offset,
	})
}

// GetArticle handles GET /api/v1/articles/:id. The response attaches the
// latest analysis payload and the derived records when present.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *ArticleHandler) GetArticle(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	article, err := h.articles.GetByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Article not found",
		})
		return
	}

	response := gin.H{"article": article}

	result, err := h.analysis.LatestByArticle(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load analysis result: " + err.Error(),
		})
		return
	}
	if result != nil {
		var payload json.RawMessage
		if json.Unmarshal([]byte(result.Payload), &payload) == nil {
			response["analysis"] = payload
		}
		response["analysis_meta"] = gin.H{
			"confidence_score":   result.ConfidenceScore,
			"processing_seconds": result.ProcessingSeconds,
			"model":              result.Model,
			"prompt_version":     result.PromptVersion,
			"created_at":         result.CreatedAt,
		}

		derived, err := h.analysis.DerivedByArticle(ctx, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load derived records: " + err.Error(),
			})
			return
		}
		response["indicators"] = derived.Indicators
		response["cve_references"] = derived.CVEs
		response["threat_actors"] = derived.Actors
		response["malware_families"] = derived.MalwareFamilies
		response["industries"] = derived.Industries
		response["regions"] = derived.Regions
	}

	c.JSON(http.StatusOK, response)
}
