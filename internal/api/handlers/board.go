package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/service"
)

// GetBoard returns the pin layout for a row count.
func GetBoard(c *gin.Context) {
	rows, ok := paramInt(c, "rows")
	if !ok {
		return
	}
	board, err := game.BuildBoard(rows)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, board)
}

// GetMultipliers returns the payout row for a row count and risk tier.
func GetMultipliers(c *gin.Context) {
	rows, ok := paramInt(c, "rows")
	if !ok {
		return
	}
	risk, err := game.ParseRisk(c.Param("risk"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	row, err := game.Multipliers(rows, risk)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "risk": risk, "multipliers": row})
}

// ListBoards returns the boards with a live drop controller.
func ListBoards(svc *service.DropService) gin.HandlerFunc {
	return func(c *gin.Context) {
		boards := svc.Boards().Boards()
		c.JSON(http.StatusOK, gin.H{"boards": boards, "count": len(boards)})
	}
}
