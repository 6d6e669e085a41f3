package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/handler"
)

// Routes holds the handlers mounted by SetupRoutes.
type Routes struct {
	Articles   *handler.ArticleHandler
	Ingestions *handler.IngestionHandler
	Metrics    http.Handler
	Health     HealthOptions
	// JWTSecret guards the ingestion routes when set.
	JWTSecret  string
}

// SetupRoutes registers the health, metrics and v1 API routes.
func SetupRoutes(router *gin.Engine, routes Routes) {
	RegisterHealthRoutes(router, routes.Health)

	if routes.Metrics != nil {
		router.GET("/metrics", gin.WrapH(routes.Metrics))
	}

	v1 := router.Group("/api/v1")

	if routes.Articles != nil {
		v1.GET("/articles", routes.Articles.List)
		v1.GET("/articles/:article_id", routes.Articles.Get)
	}

	if routes.Ingestions != nil {
		ops := v1.Group("/ingestions", JWTMiddleware(routes.JWTSecret))
		ops.POST("", routes.Ingestions.Trigger)
		ops.GET("", routes.Ingestions.List)
	}
}
