package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/playmatatu/plinko/internal/recording"
	"github.com/redis/go-redis/v9"
)

var rdbClient *redis.Client

func SetRedisClient(r *redis.Client) {
	rdbClient = r
}

// StartRecordingEventSubscriber subscribes to recording events published by
// any instance and rebroadcasts them to operators connected here.
func StartRecordingEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		log.Println("[WS] Redis client not set; recording event subscriber not started")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, recording.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", recording.EventsChannel)
		for msg := range ch {
			var ev recording.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[WS] invalid recording event payload: %v", err)
				continue
			}
			if ev.Type != "progress" {
				log.Printf("[WS] recording %s rows=%d (subscribers=%d)", ev.Type, ev.Rows, BoardHub.RoomSize(RecordingRoom))
			}
			BroadcastRecording(ev)
		}
	}()
}
