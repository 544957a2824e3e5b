package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/plinko/internal/fairness"
	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/recording"
	"github.com/playmatatu/plinko/internal/service"
)

func TestBroadcastToRoom(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := &Client{hub: h, id: "a", room: RecordingRoom, send: make(chan []byte, 1)}
	b := &Client{hub: h, id: "b", room: "board:x", send: make(chan []byte, 1)}
	h.register <- a
	h.register <- b

	deadline := time.Now().Add(time.Second)
	for h.RoomSize(RecordingRoom) != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	h.BroadcastToRoom(RecordingRoom, recording.Event{Type: "progress", Rows: 8})
	select {
	case data := <-a.send:
		var ev recording.Event
		if err := json.Unmarshal(data, &ev); err != nil || ev.Rows != 8 {
			t.Errorf("got %s (%v)", data, err)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber got nothing")
	}
	select {
	case data := <-b.send:
		t.Errorf("other room received %s", data)
	default:
	}

	h.unregister <- a
	if _, ok := <-a.send; ok {
		t.Error("send channel not closed on unregister")
	}
	if a.Send(map[string]string{"type": "late"}) {
		t.Error("Send succeeded after unregister")
	}
}

func TestBoardWebSocketStreamsDrop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	boards := game.NewBoardManager(game.NewPathLibrary(0), game.PlayerOptions{TickInterval: time.Millisecond})
	svc := service.NewDropService(boards, fairness.NewRegistry(nil), nil, 0)

	router := gin.New()
	router.GET("/ws", HandleBoardWebSocket(svc))
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?board_id=stream-test"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	req := `{"type":"drop","data":{"bet_amount":1,"rows":8,"risk":"low","mode":"random"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatal(err)
	}

	frames := 0
	conn.SetReadDeadline(time.Now().Add(20 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read after %d frames: %v", frames, err)
		}
		var msg struct {
			Type   string                 `json:"type"`
			Result map[string]interface{} `json:"result"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatal(err)
		}
		switch msg.Type {
		case "frame":
			frames++
			continue
		case "result":
			if msg.Result["board_id"] != "stream-test" || msg.Result["strategy"] != "guided" {
				t.Errorf("result %v", msg.Result)
			}
			if frames == 0 {
				t.Error("result arrived without frames")
			}
			return
		default:
			t.Fatalf("unexpected message %s", data)
		}
	}
}
