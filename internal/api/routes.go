package api

import (
	"github.com/adilg123/lzhuff/internal/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter returns an engine with the middleware stack and every route
// installed.
func NewRouter(cfg *config.Config, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	SetupRoutes(router, NewHandler(cfg, logger), logger)
	return router
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, h *Handler, logger *zap.Logger) {
	router.Use(requestID(), requestLogger(logger), cors())

	// Health check endpoint
	router.GET("/health", h.HandleHealth)

	// Service information endpoint
	router.GET("/info", h.HandleInfo)
	router.GET("/", h.HandleInfo) // Root endpoint shows info

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/compress", h.HandleCompress)
		v1.POST("/decompress", h.HandleDecompress)
		v1.POST("/compare", h.HandleCompare)
		v1.GET("/info", h.HandleInfo)
		v1.GET("/health", h.HandleHealth)
	}

	// Legacy routes for backward compatibility
	router.POST("/compress", h.HandleCompress)
	router.POST("/decompress", h.HandleDecompress)
}
