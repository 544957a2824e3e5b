package pathstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/playmatatu/plinko/internal/game"
	"github.com/redis/go-redis/v9"
)

// CachedStore is a Redis read-through cache in front of another store.
type CachedStore struct {
	inner Store
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedStore{inner: inner, rdb: rdb, ttl: ttl}
}

func pathsKey(rows int) string {
	return fmt.Sprintf("paths:%d", rows)
}

func (s *CachedStore) Load(ctx context.Context, rows int) (game.SlotBuckets, error) {
	raw, err := s.rdb.Get(ctx, pathsKey(rows)).Bytes()
	if err == nil {
		var buckets game.SlotBuckets
		if err := json.Unmarshal(raw, &buckets); err == nil {
			return buckets, nil
		}
		log.Printf("[REDIS] discarding unreadable path cache rows=%d", rows)
	} else if err != redis.Nil {
		log.Printf("[REDIS] path cache read failed rows=%d: %v", rows, err)
	}

	buckets, err := s.inner.Load(ctx, rows)
	if err != nil {
		return nil, err
	}
	if buckets != nil {
		s.cache(ctx, rows, buckets)
	}
	return buckets, nil
}

// LoadAll always reads the backing store and refreshes the cache.
func (s *CachedStore) LoadAll(ctx context.Context) (map[int]game.SlotBuckets, error) {
	all, err := s.inner.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for rows, buckets := range all {
		s.cache(ctx, rows, buckets)
	}
	return all, nil
}

func (s *CachedStore) Save(ctx context.Context, rows int, buckets game.SlotBuckets) error {
	if err := s.inner.Save(ctx, rows, buckets); err != nil {
		return err
	}
	s.cache(ctx, rows, buckets)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, rows int) error {
	if err := s.inner.Delete(ctx, rows); err != nil {
		return err
	}
	return s.rdb.Del(ctx, pathsKey(rows)).Err()
}

func (s *CachedStore) cache(ctx context.Context, rows int, buckets game.SlotBuckets) {
	data, err := json.Marshal(buckets)
	if err != nil {
		return
	}
	if err := s.rdb.SetEx(ctx, pathsKey(rows), data, s.ttl).Err(); err != nil {
		log.Printf("[REDIS] path cache write failed rows=%d: %v", rows, err)
	}
}
