package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/recording"
	"github.com/playmatatu/plinko/internal/service"
)

// RecordingRoom is the room operators join to follow recording jobs.
const RecordingRoom = "recording"

// BoardHub is the single hub for board and recording streams.
var BoardHub *Hub

var clientSeq atomic.Int64

func init() {
	BoardHub = NewHub()
	go BoardHub.Run()
}

func boardRoom(boardID string) string {
	return "board:" + boardID
}

// FrameMessage carries one simulation step to the render surface.
type FrameMessage struct {
	Type  string           `json:"type"`
	Step  int              `json:"step"`
	Balls []game.BallFrame `json:"balls"`
}

// HandleBoardWebSocket streams drops for one board. The client sends
// {"type":"drop","data":{...}} and receives a frame message per step
// followed by a result message.
func HandleBoardWebSocket(svc *service.DropService) gin.HandlerFunc {
	return func(c *gin.Context) {
		boardID := strings.TrimSpace(c.Query("board_id"))
		if boardID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "board_id required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			hub:  BoardHub,
			conn: conn,
			id:   newClientID(),
			room: boardRoom(boardID),
			send: make(chan []byte, 512),
		}
		BoardHub.register <- client

		ctx, cancel := context.WithCancel(context.Background())
		go client.writePump()
		go func() {
			defer cancel()
			client.readPump(func(msg WSMessage) {
				handleBoardMessage(ctx, svc, client, boardID, msg)
			})
		}()
	}
}

func handleBoardMessage(ctx context.Context, svc *service.DropService, c *Client, boardID string, msg WSMessage) {
	switch msg.Type {
	case "drop":
		var in service.DropInput
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			c.sendError("invalid drop request")
			return
		}
		in.BoardID = boardID
		go runStreamedDrop(ctx, svc, c, in)

	case "fairness":
		src, err := svc.Registry().Source(ctx, boardID, "")
		if err != nil {
			c.sendError("fairness unavailable")
			return
		}
		c.Send(map[string]interface{}{"type": "fairness", "state": src.State()})

	case "ping":
		c.Send(map[string]interface{}{"type": "pong"})

	default:
		c.sendError("unknown message type")
	}
}

func runStreamedDrop(ctx context.Context, svc *service.DropService, c *Client, in service.DropInput) {
	sink := game.FrameSinkFunc(func(fr game.Frame) {
		c.Send(FrameMessage{Type: "frame", Step: fr.Step, Balls: fr.Balls})
	})
	out, err := svc.Drop(ctx, in, sink)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.sendError(err.Error())
		}
		return
	}
	c.Send(map[string]interface{}{"type": "result", "result": out})
}

// HandleRecordingWebSocket subscribes an operator to recording progress.
func HandleRecordingWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}
	client := &Client{
		hub:  BoardHub,
		conn: conn,
		id:   newClientID(),
		room: RecordingRoom,
		send: make(chan []byte, 256),
	}
	BoardHub.register <- client
	go client.writePump()
	go client.readPump(nil)
}

// BroadcastRecording forwards a recording event to subscribed operators.
func BroadcastRecording(ev recording.Event) {
	BoardHub.BroadcastToRoom(RecordingRoom, ev)
}

func newClientID() string {
	return "c" + strconv.FormatInt(clientSeq.Add(1), 10)
}
