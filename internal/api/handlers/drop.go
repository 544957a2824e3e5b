package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/plinko/internal/config"
	"github.com/playmatatu/plinko/internal/history"
	"github.com/playmatatu/plinko/internal/service"
)

// Drop runs one drop and returns its settled result.
func Drop(svc *service.DropService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in service.DropInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid drop request: " + err.Error()})
			return
		}

		out, err := svc.Drop(c.Request.Context(), in, nil)
		if err != nil {
			status := errorStatus(err)
			if status == http.StatusInternalServerError {
				log.Printf("[DROP] drop failed for board %s: %v", in.BoardID, err)
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// ListDrops returns drop history, newest first.
func ListDrops(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history not available"})
			return
		}
		boardID := c.Query("board_id")
		limit, offset := pagination(c, 25, cfg.DropHistoryPageSizeMax)

		drops, err := history.List(c.Request.Context(), db, boardID, limit, offset)
		if err != nil {
			log.Printf("[DROP] Failed to fetch drop history: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch drops"})
			return
		}

		resp := gin.H{"drops": drops, "limit": limit, "offset": offset}
		if boardID != "" {
			if summary, err := history.Summarize(c.Request.Context(), db, boardID); err == nil {
				resp["summary"] = summary
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
