package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Lyon85/321-Golf/internal/api/handlers"
	"github.com/Lyon85/321-Golf/internal/config"
	"github.com/Lyon85/321-Golf/internal/middleware"
	"github.com/Lyon85/321-Golf/internal/ws"
)

// Deps are the collaborators the routes need. DB and History may be nil when
// the relay runs without Postgres.
type Deps struct {
	Config  *config.Config
	Tuning  config.Tuning
	Hub     *ws.Hub
	DB      *sqlx.DB
	History handlers.History
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Deps) {
	router.Use(middleware.CORSMiddleware(d.Config))

	if !d.Config.IsProduction() {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	router.GET("/health", handlers.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)
		v1.GET("/config", handlers.GetConfig(d.Config, d.Tuning))
		v1.POST("/identity", handlers.IssueIdentity(d.Config))

		v1.GET("/ws", middleware.WebSocketCORSCheck(d.Config), handlers.HandleRelayWebSocket(d.Hub, d.Config))

		rooms := v1.Group("/rooms")
		{
			rooms.GET("/:code", handlers.GetRoom(d.Hub))
			rooms.GET("/:code/history", handlers.GetRoomHistory(d.History))
		}

		adminGroup := v1.Group("/admin", middleware.AdminAuth(d.Config, d.DB))
		{
			adminGroup.GET("/rooms", handlers.AdminListRooms(d.Hub))
			adminGroup.DELETE("/rooms/:code", handlers.AdminCloseRoom(d.Hub, d.DB))
			adminGroup.GET("/history", handlers.AdminRecentRooms(d.History))
			adminGroup.GET("/audit", handlers.GetAdminAuditLogs(d.DB))
		}
	}
}
