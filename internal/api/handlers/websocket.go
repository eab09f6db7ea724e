package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lyon85/321-Golf/internal/config"
	"github.com/Lyon85/321-Golf/internal/identity"
	"github.com/Lyon85/321-Golf/internal/ws"
)

// HandleRelayWebSocket upgrades to a relay connection. A token query
// parameter binds the connection to a persistent identity; without one the
// client is anonymous.
func HandleRelayWebSocket(hub *ws.Hub, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ident string
		if token := c.Query("token"); token != "" {
			id, err := identity.Parse(cfg.JWTSecret, token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			ident = id
		}
		hub.ServeWS(c.Writer, c.Request, ident)
	}
}
