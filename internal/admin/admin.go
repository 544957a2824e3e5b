package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playmatatu/plinko/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccountNotFound = errors.New("admin account not found")
	ErrInvalidToken    = errors.New("invalid token")
	ErrIPNotAllowed    = errors.New("ip not allowed")
)

// GetAdminAccount retrieves an admin account by username
func GetAdminAccount(ctx context.Context, db *sqlx.DB, username string) (*models.AdminAccount, error) {
	var admin models.AdminAccount
	err := db.GetContext(ctx, &admin, `SELECT username, display_name, token_hash, roles, allowed_ips, created_at, updated_at FROM admin_accounts WHERE username=$1`, username)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// VerifyAdminToken checks if the provided token matches the stored hash
func VerifyAdminToken(hashedToken, plainToken string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken))
	return err == nil
}

// HashToken returns the bcrypt hash stored for an operator token.
func HashToken(plainToken string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashed), nil
}

// CreateAdminAccount creates or replaces an admin account (used for seeding)
func CreateAdminAccount(ctx context.Context, db *sqlx.DB, username, displayName, plainToken string, roles, allowedIPs []string) error {
	hashedToken, err := HashToken(plainToken)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO admin_accounts (username, display_name, token_hash, roles, allowed_ips, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			token_hash = EXCLUDED.token_hash,
			roles = EXCLUDED.roles,
			allowed_ips = EXCLUDED.allowed_ips,
			updated_at = NOW()
	`, username, displayName, hashedToken, pq.Array(roles), pq.Array(allowedIPs))

	return err
}

// IPAllowed reports whether ip may use the account. An empty allow list
// admits everyone; entries may be single addresses or CIDR ranges.
func IPAllowed(account *models.AdminAccount, ip string) bool {
	if len(account.AllowedIPs) == 0 {
		return true
	}
	addr := net.ParseIP(ip)
	for _, allowed := range account.AllowedIPs {
		if allowed == ip {
			return true
		}
		if _, network, err := net.ParseCIDR(allowed); err == nil && addr != nil && network.Contains(addr) {
			return true
		}
	}
	return false
}

// HasRole reports whether the account carries role. "superadmin" carries all.
func HasRole(account *models.AdminAccount, role string) bool {
	for _, r := range account.Roles {
		if r == role || r == "superadmin" {
			return true
		}
	}
	return false
}

// ValidateAdminCredentials validates a username + token combination from ip.
func ValidateAdminCredentials(ctx context.Context, db *sqlx.DB, username, token, ip string) (*models.AdminAccount, error) {
	admin, err := GetAdminAccount(ctx, db, username)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Printf("[ADMIN] No admin account found for: %s", username)
			return nil, ErrAccountNotFound
		}
		log.Printf("[ADMIN] Database error: %v", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !VerifyAdminToken(admin.TokenHash, token) {
		log.Printf("[ADMIN] Token verification failed for: %s", username)
		return nil, ErrInvalidToken
	}
	if !IPAllowed(admin, ip) {
		log.Printf("[ADMIN] Login for %s refused from %s", username, ip)
		return nil, ErrIPNotAllowed
	}

	log.Printf("[ADMIN] Token verified successfully for: %s", username)
	return admin, nil
}

// LogAdminAction records an admin action in the audit log
func LogAdminAction(ctx context.Context, db *sqlx.DB, adminUsername, ip, route, action string, details map[string]interface{}, success bool) error {
	if db == nil {
		log.Printf("[ADMIN] audit %s %s by %s success=%v details=%v", action, route, adminUsername, success, details)
		return nil
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("[ADMIN] Failed to marshal admin audit details: %v", err)
		detailsJSON = []byte("{}")
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO admin_audit (admin_username, ip, route, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, adminUsername, ip, route, action, detailsJSON, success)

	if err != nil {
		log.Printf("[ADMIN] Failed to log admin action: %v", err)
	}

	return err
}

// GetAdminAuditLogs retrieves recent admin audit logs with pagination
func GetAdminAuditLogs(ctx context.Context, db *sqlx.DB, limit, offset int) ([]models.AdminAudit, error) {
	logs := []models.AdminAudit{}
	query := `
		SELECT id, admin_username, ip, route, action, details, success, created_at
		FROM admin_audit
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	err := db.SelectContext(ctx, &logs, query, limit, offset)
	return logs, err
}
