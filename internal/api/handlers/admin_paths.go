package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/plinko/internal/admin"
	"github.com/playmatatu/plinko/internal/config"
	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/pathstore"
	"github.com/playmatatu/plinko/internal/recording"
)

type rowCoverage struct {
	Rows   int         `json:"rows"`
	Total  int         `json:"total"`
	Counts map[int]int `json:"counts"`
}

// GetPathLibrary returns per-slot path counts for every supported row count.
func GetPathLibrary(library *game.PathLibrary) gin.HandlerFunc {
	return func(c *gin.Context) {
		coverage := make([]rowCoverage, 0, len(game.SupportedRows()))
		for _, rows := range game.SupportedRows() {
			coverage = append(coverage, rowCoverage{Rows: rows, Total: library.Total(rows), Counts: library.Counts(rows)})
		}
		c.JSON(http.StatusOK, gin.H{"rows": coverage})
	}
}

// StartRecording launches a background recording job.
func StartRecording(jobs *recording.Manager, db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminUsername := c.GetString("admin_username")
		ctx := c.Request.Context()

		var req struct {
			Rows           int `json:"rows" binding:"required"`
			SamplesPerSlot int `json:"samples_per_slot"`
			MaxAttempts    int `json:"max_attempts"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rows required"})
			return
		}
		current := cfg.Snapshot()
		if req.SamplesPerSlot <= 0 {
			req.SamplesPerSlot = current.SamplesPerSlot
		}
		if req.MaxAttempts <= 0 {
			req.MaxAttempts = current.MaxRecordAttempts
		}

		details := map[string]interface{}{"rows": req.Rows, "samples_per_slot": req.SamplesPerSlot, "max_attempts": req.MaxAttempts}
		status, err := jobs.Start(ctx, req.Rows, req.SamplesPerSlot, req.MaxAttempts, adminUsername)
		if err != nil {
			admin.LogAdminAction(ctx, db, adminUsername, c.ClientIP(), "/api/v1/admin/paths/record", "start_recording", details, false)
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}

		admin.LogAdminAction(ctx, db, adminUsername, c.ClientIP(), "/api/v1/admin/paths/record", "start_recording", details, true)
		c.JSON(http.StatusAccepted, gin.H{"job": status})
	}
}

// CancelRecording stops the running job for a row count.
func CancelRecording(jobs *recording.Manager, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, ok := paramInt(c, "rows")
		if !ok {
			return
		}
		adminUsername := c.GetString("admin_username")
		route := fmt.Sprintf("/api/v1/admin/paths/record/%d", rows)

		if !jobs.Cancel(rows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no running job for these rows"})
			return
		}
		admin.LogAdminAction(c.Request.Context(), db, adminUsername, c.ClientIP(), route, "cancel_recording", map[string]interface{}{"rows": rows}, true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// GetRecordingJobs lists recording jobs run by this instance.
func GetRecordingJobs(jobs *recording.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"jobs": jobs.Status()})
	}
}

// DeletePaths clears the recorded paths for a row count.
func DeletePaths(library *game.PathLibrary, store pathstore.Store, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, ok := paramInt(c, "rows")
		if !ok {
			return
		}
		adminUsername := c.GetString("admin_username")
		ctx := c.Request.Context()
		route := fmt.Sprintf("/api/v1/admin/paths/%d", rows)

		if store != nil {
			if err := store.Delete(ctx, rows); err != nil {
				log.Printf("[PATHS] failed to delete rows=%d: %v", rows, err)
				admin.LogAdminAction(ctx, db, adminUsername, c.ClientIP(), route, "delete_paths", map[string]interface{}{"rows": rows}, false)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete paths"})
				return
			}
		}
		removed := library.Total(rows)
		library.Replace(rows, nil)

		admin.LogAdminAction(ctx, db, adminUsername, c.ClientIP(), route, "delete_paths", map[string]interface{}{"rows": rows, "removed": removed}, true)
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	}
}
