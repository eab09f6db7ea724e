package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lyon85/321-Golf/internal/config"
)

// GetConfig returns the netcode tuning clients should run with, plus the
// room limits of this relay.
func GetConfig(cfg *config.Config, tuning config.Tuning) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tuning":          tuning,
			"max_guests":      cfg.RoomMaxGuests,
			"item_count":      cfg.RoomItemCount,
			"world_width":     cfg.WorldWidth,
			"world_height":    cfg.WorldHeight,
			"identity_prefix": cfg.IdentityPrefix,
		})
	}
}
