package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/api/handlers"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/metrics"
	"github.com/playpong/backend/internal/middleware"
	"github.com/playpong/backend/internal/stats"
	"github.com/playpong/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, recorder *stats.Recorder, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			// Aggressive no-cache for development
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] Aggressive no-cache headers enabled for all routes")
	}

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		v1.POST("/auth/guest", handlers.GuestLogin(cfg))

		v1.GET("/lobby", handlers.GetLobby)
		v1.GET("/leaderboard", handlers.GetLeaderboard(recorder))

		// WebSocket endpoint (game traffic)
		v1.GET("/ws", middleware.WebSocketCORSCheck(cfg), ws.HandleWebSocket(cfg))
	}
}
