package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/jobscout/api/handler"
	"github.com/use-agent/jobscout/api/middleware"
	"github.com/use-agent/jobscout/cache"
	"github.com/use-agent/jobscout/config"
	"github.com/use-agent/jobscout/models"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	/runs:   Auth
func NewRouter(runner handler.Runner, engineName string, cfg *config.Config, store *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	gate := &handler.Gate{}
	defaults := models.SearchQuery{Keyword: cfg.Search.Keyword, Location: cfg.Search.Location}

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(gate, engineName, startTime))

	runs := v1.Group("/runs")
	runs.Use(middleware.Auth(cfg.Server.APIKeys))
	{
		runs.POST("", handler.PostRun(runner, gate, store, defaults, cfg.Extractor.MaxResults))
		runs.GET("/:id", handler.GetRun(store))
	}

	return r
}
