// Package admin verifies the relay admin token and keeps the audit log of
// admin actions.
package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/Lyon85/321-Golf/internal/models"
)

var ErrNoAdminToken = errors.New("admin: no token hash configured")

// HashToken produces the value stored in ADMIN_TOKEN_HASH.
func HashToken(plainToken string) (string, error) {
	if plainToken == "" {
		return "", errors.New("admin: empty token")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashed), nil
}

// VerifyAdminToken checks if the provided token matches the stored hash
func VerifyAdminToken(hashedToken, plainToken string) bool {
	if hashedToken == "" || plainToken == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken))
	return err == nil
}

// LogAdminAction records an admin action in the audit log. Without a
// database the entry only goes to the process log.
func LogAdminAction(db *sqlx.DB, ip, route, action string, details map[string]interface{}, success bool) error {
	log.Printf("[ADMIN] %s %s from %s success=%v %v", action, route, ip, success, details)
	if db == nil {
		return nil
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("[ADMIN] Failed to marshal audit details: %v", err)
		detailsJSON = []byte("{}")
	}

	_, err = db.Exec(`
		INSERT INTO admin_audit (ip, route, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, ip, route, action, detailsJSON, success)
	if err != nil {
		log.Printf("[ADMIN] Failed to log admin action: %v", err)
	}
	return err
}

// GetAdminAuditLogs retrieves recent admin audit logs with pagination
func GetAdminAuditLogs(db *sqlx.DB, limit, offset int) ([]models.AdminAudit, error) {
	logs := []models.AdminAudit{}
	err := db.Select(&logs, `
		SELECT id, ip, route, action, details, success, created_at
		FROM admin_audit
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return logs, err
}
