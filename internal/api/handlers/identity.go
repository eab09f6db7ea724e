package handlers

import (
	"errors"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lyon85/321-Golf/internal/config"
	"github.com/Lyon85/321-Golf/internal/identity"
)

const identityTTL = 30 * 24 * time.Hour

// IssueIdentity hands out a persistent room identity. A still-valid token in
// the body is renewed for the same identity instead.
func IssueIdentity(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Token string `json:"token"`
		}
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		now := time.Now()
		if req.Token != "" {
			id, err := identity.Parse(cfg.JWTSecret, req.Token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			token, err := identity.Sign(cfg.JWTSecret, id, identityTTL, now)
			if err != nil {
				log.Printf("[WS] renew identity %s: %v", id, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to renew identity"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"identity": id, "token": token, "expires_at": now.Add(identityTTL)})
			return
		}

		rng := rand.New(rand.NewSource(now.UnixNano()))
		id, token, err := identity.Issue(cfg.JWTSecret, cfg.IdentityPrefix, rng, identityTTL, now)
		if err != nil {
			log.Printf("[WS] issue identity: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue identity"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"identity": id, "token": token, "expires_at": now.Add(identityTTL)})
	}
}
