package api

import (
	"github.com/gin-gonic/gin"

	"github.com/samcutley/intelwatch/internal/api/handler"
	"github.com/samcutley/intelwatch/internal/api/middleware"
	"github.com/samcutley/intelwatch/internal/repository"
	"github.com/samcutley/intelwatch/internal/service"
)

// Repositories bundles the read-side stores the API serves from.
type Repositories struct {
	Articles *repository.ArticleRepository
	Sources  *repository.SourceRepository
	Jobs     *repository.CrawlJobRepository
	Analysis *repository.AnalysisRepository
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	repos *Repositories,
	crawler *service.CrawlService,
	cors middleware.CORSConfig,
	mode string,
) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler()
	sourceHandler := handler.NewSourceHandler(repos.Sources)
	articleHandler := handler.NewArticleHandler(repos.Articles, repos.Analysis)
	iocHandler := handler.NewIOCHandler(repos.Analysis)
	jobHandler := handler.NewJobHandler(repos.Jobs, repos.Sources, crawler)
	statsHandler := handler.NewStatsHandler(repos.Articles, repos.Analysis)
	searchHandler := handler.NewSearchHandler(repos.Articles)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Sources
		v1.GET("/sources", sourceHandler.ListSources)
		v1.POST("/sources", sourceHandler.CreateSource)
		v1.GET("/sources/:id", sourceHandler.GetSource)

		// Articles
		v1.GET("/articles", articleHandler.ListArticles)
		v1.GET("/articles/:id", articleHandler.GetArticle)

		// Indicators
		v1.GET("/iocs", iocHandler.ListIOCs)

		// Crawl jobs
		v1.GET("/jobs", jobHandler.ListJobs)
		v1.GET("/jobs/:id", jobHandler.GetJob)
		v1.POST("/jobs/trigger", jobHandler.TriggerCrawl)

		// Search
		v1.GET("/search", searchHandler.Search)

		// Stats
		v1.GET("/stats", statsHandler.GetStats)
	}

	return r
}
