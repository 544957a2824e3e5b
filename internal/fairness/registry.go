package fairness

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const seedStateTTL = 7 * 24 * time.Hour

type secretState struct {
	ServerSeed string    `json:"server_seed"`
	ClientSeed string    `json:"client_seed"`
	Nonce      uint64    `json:"nonce"`
	CreatedAt  time.Time `json:"created_at"`
}

// Registry keeps one SeededSource per board. When a Redis client is set the
// secret state survives restarts; otherwise it lives in memory only.
type Registry struct {
	rdb     *redis.Client
	sources map[string]*SeededSource // keyed by board ID
	mu      sync.Mutex
}

func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{rdb: rdb, sources: make(map[string]*SeededSource)}
}

func seedKey(boardID string) string {
	return "fairness:" + boardID + ":seed"
}

// Source returns the board's seeded source, loading or creating it. A
// non-empty clientSeed replaces the current one, rotating the server seed if
// rolls were already drawn on it.
func (r *Registry) Source(ctx context.Context, boardID, clientSeed string) (*SeededSource, error) {
	s, err := r.source(ctx, boardID, clientSeed)
	if err != nil {
		return nil, err
	}
	if clientSeed == "" {
		return s, nil
	}
	revealed, err := s.SetClientSeed(clientSeed)
	if err != nil {
		return nil, err
	}
	if revealed != nil {
		log.Printf("[FAIRNESS] client seed changed for board %s, revealed_hash=%s nonce=%d", boardID, revealed.ServerSeedHash, revealed.Nonce)
		if err := r.Save(ctx, boardID); err != nil {
			log.Printf("[FAIRNESS] failed to save rotated seed for board %s: %v", boardID, err)
		}
	}
	return s, nil
}

func (r *Registry) source(ctx context.Context, boardID, clientSeed string) (*SeededSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sources[boardID]; ok {
		return s, nil
	}
	s := r.load(ctx, boardID)
	if s == nil {
		if clientSeed == "" {
			clientSeed = boardID
		}
		var err error
		if s, err = NewSeededSource(clientSeed); err != nil {
			return nil, err
		}
		log.Printf("[FAIRNESS] new server seed for board %s hash=%s", boardID, s.State().ServerSeedHash)
	}
	r.sources[boardID] = s
	return s, nil
}

// Save persists the board's secret state.
func (r *Registry) Save(ctx context.Context, boardID string) error {
	if r.rdb == nil {
		return nil
	}
	r.mu.Lock()
	s, ok := r.sources[boardID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	data, err := json.Marshal(s.secret())
	if err != nil {
		return err
	}
	return r.rdb.SetEx(ctx, seedKey(boardID), data, seedStateTTL).Err()
}

// Rotate reveals the board's current seed and commits a new one.
func (r *Registry) Rotate(ctx context.Context, boardID string) (SeedState, error) {
	s, err := r.Source(ctx, boardID, "")
	if err != nil {
		return SeedState{}, err
	}
	revealed, err := s.Rotate()
	if err != nil {
		return SeedState{}, err
	}
	if err := r.Save(ctx, boardID); err != nil {
		log.Printf("[FAIRNESS] failed to save rotated seed for board %s: %v", boardID, err)
	}
	log.Printf("[FAIRNESS] rotated seed for board %s revealed_hash=%s nonce=%d", boardID, revealed.ServerSeedHash, revealed.Nonce)
	return revealed, nil
}

func (r *Registry) load(ctx context.Context, boardID string) *SeededSource {
	if r.rdb == nil {
		return nil
	}
	raw, err := r.rdb.Get(ctx, seedKey(boardID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[REDIS] failed to load seed for board %s: %v", boardID, err)
		}
		return nil
	}
	var st secretState
	if err := json.Unmarshal(raw, &st); err != nil || st.ServerSeed == "" {
		log.Printf("[FAIRNESS] discarding unreadable seed state for board %s", boardID)
		return nil
	}
	return RestoreSeededSource(st.ServerSeed, st.ClientSeed, st.Nonce, st.CreatedAt)
}
