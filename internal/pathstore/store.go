package pathstore

import (
	"context"
	"fmt"
	"log"

	"github.com/playmatatu/plinko/internal/game"
)

// Store persists a path library. Load returns nil buckets, not an error, for
// a row count that has never been recorded.
type Store interface {
	Load(ctx context.Context, rows int) (game.SlotBuckets, error)
	LoadAll(ctx context.Context) (map[int]game.SlotBuckets, error)
	Save(ctx context.Context, rows int, buckets game.SlotBuckets) error
	Delete(ctx context.Context, rows int) error
}

// LoadInto fills lib with everything in store and returns the number of
// paths loaded. Paths that could not replay into their slot, and paths over
// the library's capacity, are dropped with a log line.
func LoadInto(ctx context.Context, store Store, lib *game.PathLibrary) (int, error) {
	all, err := store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load path library: %w", err)
	}
	loaded := 0
	for rows, buckets := range all {
		kept, dropped, err := game.ValidateBuckets(rows, buckets, lib.Capacity())
		if err != nil {
			log.Printf("[PATHS] skipping %d stored paths for rows=%d: %v", dropped, rows, err)
			continue
		}
		if dropped > 0 {
			log.Printf("[PATHS] dropped %d invalid or surplus paths for rows=%d", dropped, rows)
		}
		lib.Replace(rows, kept)
		loaded += kept.Count()
	}
	log.Printf("[PATHS] loaded %d paths across %d row counts", loaded, len(all))
	return loaded, nil
}
