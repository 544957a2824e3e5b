package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/plinko/internal/service"
	"github.com/playmatatu/plinko/internal/ws"
)

// HandleBoardWebSocket streams drop frames for a board.
func HandleBoardWebSocket(svc *service.DropService) gin.HandlerFunc {
	return ws.HandleBoardWebSocket(svc)
}

// HandleRecordingWebSocket streams recording progress to operators.
func HandleRecordingWebSocket() gin.HandlerFunc {
	return ws.HandleRecordingWebSocket
}
