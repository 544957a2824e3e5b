package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/plinko/internal/api/handlers"
	"github.com/playmatatu/plinko/internal/config"
	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/middleware"
	"github.com/playmatatu/plinko/internal/pathstore"
	"github.com/playmatatu/plinko/internal/recording"
	"github.com/playmatatu/plinko/internal/service"
)

// Deps are the long-lived services the HTTP layer needs.
type Deps struct {
	DB      *sqlx.DB
	Drops   *service.DropService
	Library *game.PathLibrary
	Store   pathstore.Store
	Jobs    *recording.Manager
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, cfg *config.Config, d Deps) {
	router.Use(middleware.CORSMiddleware(cfg))

	// No-cache middleware in development
	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] Aggressive no-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)
		v1.GET("/config", handlers.GetConfig(cfg))

		// Board geometry and payouts
		v1.GET("/board/:rows", handlers.GetBoard)
		v1.GET("/multipliers/:rows/:risk", handlers.GetMultipliers)
		v1.GET("/board/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleBoardWebSocket(d.Drops))

		// Drops
		v1.POST("/drop", handlers.Drop(d.Drops))
		v1.GET("/drops", handlers.ListDrops(d.DB, cfg))

		// Provable fairness
		fair := v1.Group("/fairness")
		{
			fair.POST("/verify", handlers.VerifyRoll)
			fair.GET("/:board_id", handlers.GetFairness(d.Drops))
			fair.POST("/:board_id/rotate", handlers.RotateSeed(d.Drops))
		}

		// Operator endpoints
		v1.POST("/admin/login", handlers.AdminLogin(d.DB, cfg))
		adm := v1.Group("/admin")
		adm.Use(middleware.AdminAuthMiddleware(cfg))
		{
			adm.GET("/me", handlers.AdminMe)
			adm.GET("/boards", handlers.ListBoards(d.Drops))

			adm.GET("/paths", handlers.GetPathLibrary(d.Library))
			adm.GET("/paths/jobs", handlers.GetRecordingJobs(d.Jobs))
			adm.GET("/paths/ws", handlers.HandleRecordingWebSocket())
			adm.POST("/paths/record", middleware.RequireRole("recorder"), handlers.StartRecording(d.Jobs, d.DB, cfg))
			adm.DELETE("/paths/record/:rows", middleware.RequireRole("recorder"), handlers.CancelRecording(d.Jobs, d.DB))
			adm.DELETE("/paths/:rows", middleware.RequireRole("recorder"), handlers.DeletePaths(d.Library, d.Store, d.DB))

			adm.GET("/audit", handlers.GetAdminAuditLogs(d.DB))
			adm.GET("/config", handlers.GetAdminRuntimeConfig(d.DB))
			adm.PUT("/config/:key", middleware.RequireRole("config"), handlers.UpdateAdminRuntimeConfig(d.DB, cfg, d.Drops))
		}
	}
}
