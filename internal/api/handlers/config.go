package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/plinko/internal/config"
	"github.com/playmatatu/plinko/internal/game"
)

// GetConfig returns minimal config values required by frontend
func GetConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := cfg.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"supported_rows": game.SupportedRows(),
			"risks":          []game.Risk{game.RiskLow, game.RiskMedium, game.RiskHigh},
			"max_bet_amount": current.MaxBetAmount,
			"tick_rate":      current.TickRate,
		})
	}
}
