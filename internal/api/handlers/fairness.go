package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/plinko/internal/fairness"
	"github.com/playmatatu/plinko/internal/service"
)

// GetFairness returns the board's current seed commitment.
func GetFairness(svc *service.DropService) gin.HandlerFunc {
	return func(c *gin.Context) {
		src, err := svc.Registry().Source(c.Request.Context(), c.Param("board_id"), c.Query("client_seed"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fairness unavailable"})
			return
		}
		resp := gin.H{"state": src.State()}
		if last, ok := src.LastRoll(); ok {
			resp["last_roll"] = last
		}
		if prev, ok := src.Previous(); ok {
			resp["previous"] = prev
		}
		c.JSON(http.StatusOK, resp)
	}
}

// RotateSeed reveals the board's server seed and commits a fresh one.
func RotateSeed(svc *service.DropService) gin.HandlerFunc {
	return func(c *gin.Context) {
		boardID := c.Param("board_id")
		revealed, err := svc.Registry().Rotate(c.Request.Context(), boardID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate seed"})
			return
		}
		src, err := svc.Registry().Source(c.Request.Context(), boardID, "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "fairness unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"revealed": revealed, "next": src.State()})
	}
}

// VerifyRoll recomputes a slot from a revealed seed.
func VerifyRoll(c *gin.Context) {
	var req struct {
		ServerSeed     string `json:"server_seed" binding:"required"`
		ServerSeedHash string `json:"server_seed_hash" binding:"required"`
		ClientSeed     string `json:"client_seed"`
		Nonce          uint64 `json:"nonce"`
		Rows           int    `json:"rows" binding:"required"`
		Slot           int    `json:"slot"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verify request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":         fairness.Verify(req.ServerSeed, req.ServerSeedHash, req.ClientSeed, req.Nonce, req.Rows, req.Slot),
		"seed_matches":  fairness.VerifySeed(req.ServerSeed, req.ServerSeedHash),
		"computed_slot": fairness.DeriveSlot(req.ServerSeed, req.ClientSeed, req.Nonce, req.Rows),
	})
}
