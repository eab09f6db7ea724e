package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lyon85/321-Golf/internal/models"
	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/store"
	"github.com/Lyon85/321-Golf/internal/ws"
)

// History is the read side of the match-history store.
type History interface {
	History(ctx context.Context, code string) (*models.RoomHistory, error)
	Recent(ctx context.Context, limit int) ([]models.Room, error)
}

// GetRoom returns a live room on this relay instance.
func GetRoom(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := protocol.NormalizeRoomID(c.Param("code"))
		info, ok, err := hub.Room(code)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Relay unavailable"})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// GetRoomHistory returns the recorded holes and club claims of the latest
// hosting of a room.
func GetRoomHistory(history History) gin.HandlerFunc {
	return func(c *gin.Context) {
		if history == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History unavailable"})
			return
		}
		code := protocol.NormalizeRoomID(c.Param("code"))
		h, err := history.History(c.Request.Context(), code)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		if err != nil {
			log.Printf("[DB] history %s: %v", code, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
			return
		}
		c.JSON(http.StatusOK, h)
	}
}
