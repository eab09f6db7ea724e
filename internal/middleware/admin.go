package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Lyon85/321-Golf/internal/admin"
	"github.com/Lyon85/321-Golf/internal/config"
)

// AdminAuth requires "Authorization: Bearer <token>" matching
// ADMIN_TOKEN_HASH. Failed attempts are audited.
func AdminAuth(cfg *config.Config, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AdminTokenHash == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin API disabled"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if !admin.VerifyAdminToken(cfg.AdminTokenHash, token) {
			admin.LogAdminAction(db, c.ClientIP(), c.FullPath(), "auth", nil, false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			c.Abort()
			return
		}

		c.Next()
	}
}
