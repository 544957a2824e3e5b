package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/plinko/internal/admin"
	"github.com/playmatatu/plinko/internal/config"
	"github.com/playmatatu/plinko/internal/middleware"
)

// AdminLogin exchanges an operator username and token for a session JWT.
func AdminLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Token    string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		username := strings.TrimSpace(req.Username)
		ctx := c.Request.Context()

		adminAcc, err := admin.ValidateAdminCredentials(ctx, db, username, strings.TrimSpace(req.Token), c.ClientIP())
		if err != nil {
			log.Printf("[ADMIN] Login failed for username %s: %v", username, err)
			admin.LogAdminAction(ctx, db, username, c.ClientIP(), "/api/v1/admin/login", "login", map[string]interface{}{"username": username}, false)
			if errors.Is(err, admin.ErrIPNotAllowed) {
				c.JSON(http.StatusForbidden, gin.H{"error": "Login not allowed from this address"})
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		token, exp, err := middleware.IssueAdminToken(cfg, adminAcc.Username, adminAcc.Roles)
		if err != nil {
			log.Printf("[ADMIN] Failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		admin.LogAdminAction(ctx, db, username, c.ClientIP(), "/api/v1/admin/login", "login", map[string]interface{}{"username": username}, true)
		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_at": exp,
			"admin": gin.H{
				"username":     adminAcc.Username,
				"display_name": adminAcc.DisplayName.String,
				"roles":        adminAcc.Roles,
			},
		})
	}
}

// AdminMe returns the authenticated operator.
func AdminMe(c *gin.Context) {
	roles, _ := c.Get("admin_roles")
	c.JSON(http.StatusOK, gin.H{"username": c.GetString("admin_username"), "roles": roles})
}
