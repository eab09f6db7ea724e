package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Lyon85/321-Golf/internal/admin"
	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/ws"
)

// AdminListRooms returns the live rooms on this instance.
func AdminListRooms(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		rooms, err := hub.Rooms()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Relay unavailable"})
			return
		}
		if rooms == nil {
			rooms = []ws.RoomInfo{}
		}
		conns, err := hub.Connected()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Relay unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms, "connections": conns})
	}
}

// AdminCloseRoom closes a room here and on every other instance.
func AdminCloseRoom(hub *ws.Hub, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := protocol.NormalizeRoomID(c.Param("code"))
		local, err := hub.CloseRoom(code, "closed by admin")
		admin.LogAdminAction(db, c.ClientIP(), c.FullPath(), "close_room", map[string]interface{}{"code": code, "local": local}, err == nil)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Relay unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": code, "closed_locally": local})
	}
}

// AdminRecentRooms lists recorded hostings, newest first.
func AdminRecentRooms(history History) gin.HandlerFunc {
	return func(c *gin.Context) {
		if history == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History unavailable"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
		if limit <= 0 || limit > 200 {
			limit = 25
		}
		rooms, err := history.Recent(c.Request.Context(), limit)
		if err != nil {
			log.Printf("[ADMIN] Failed to fetch recent rooms: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rooms"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms, "limit": limit})
	}
}

// GetAdminAuditLogs returns paginated audit log entries
func GetAdminAuditLogs(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Audit log unavailable"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit <= 0 || limit > 200 {
			limit = 25
		}
		if offset < 0 {
			offset = 0
		}

		logs, err := admin.GetAdminAuditLogs(db, limit, offset)
		if err != nil {
			log.Printf("[ADMIN] Failed to fetch audit logs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs, "limit": limit, "offset": offset})
	}
}
