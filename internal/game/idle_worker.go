package game

import (
	"context"
	"log"
	"time"
)

// StartIdleWorker starts a background worker that evicts boards with no drop
// activity for idleAfter.
func StartIdleWorker(ctx context.Context, m *BoardManager, idleAfter, pollInterval time.Duration) {
	if m == nil || idleAfter <= 0 {
		log.Println("[IDLE] Board manager missing or idle timeout disabled; idle worker not started")
		return
	}
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case now := <-ticker.C:
				if n := m.EvictIdle(now.Add(-idleAfter)); n > 0 {
					log.Printf("[IDLE] evicted %d idle boards", n)
				}
			}
		}
	}()
}
