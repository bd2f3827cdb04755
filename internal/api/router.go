package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/timmy/culturemap/internal/api/handler"
	"github.com/timmy/culturemap/internal/api/middleware"
	"github.com/timmy/culturemap/internal/config"
	"github.com/timmy/culturemap/internal/logger"
	"github.com/timmy/culturemap/internal/service"
)

// Services bundles what the router serves.
type Services struct {
	Imports *service.ImportService
	Feed    *service.FeedService
	DB      handler.Pinger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg *config.ServerConfig, svc Services, log *logger.Logger) (*gin.Engine, error) {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	uploadLimit, err := middleware.RateLimit(cfg.UploadRateLimit)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler(svc.DB)
	importHandler := handler.NewImportHandler(svc.Imports)
	feedHandler := handler.NewFeedHandler(svc.Feed)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		imports := v1.Group("/imports")
		imports.POST("", uploadLimit, middleware.MaxBodySize(cfg.MaxUploadBytes), importHandler.Upload)
		imports.GET("", importHandler.List)
		imports.GET("/:id", importHandler.Get)
		imports.GET("/:id/status", importHandler.Status)
		imports.PUT("/:id/mapping", importHandler.UpdateMapping)
		imports.POST("/:id/schedule", importHandler.Schedule)
		imports.DELETE("/:id", importHandler.Delete)

		runs := v1.Group("/feed/runs")
		runs.POST("", feedHandler.Submit)
		runs.GET("", feedHandler.List)
		runs.GET("/:id", feedHandler.Get)
	}

	return r, nil
}
