package fairness

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/playmatatu/plinko/internal/game"
)

// FreeSource never constrains a drop; physics alone decides.
type FreeSource struct{}

func (FreeSource) TargetSlot(ctx context.Context, rows int, risk game.Risk, betAmount float64) (*int, error) {
	return nil, nil
}

// RandomSource draws the slot the way an ideal board would: one fair
// left/right coin per row.
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomSource(seed int64) *RandomSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomSource) TargetSlot(ctx context.Context, rows int, risk game.Risk, betAmount float64) (*int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := 0
	for i := 0; i < rows; i++ {
		if s.rng.Float64() >= 0.5 {
			slot++
		}
	}
	return &slot, nil
}

// SeedState is the public view of a seeded source. ServerSeed is only set
// on seeds that have been rotated out.
type SeedState struct {
	ServerSeed     string    `json:"server_seed,omitempty"`
	ServerSeedHash string    `json:"server_seed_hash"`
	ClientSeed     string    `json:"client_seed"`
	Nonce          uint64    `json:"nonce"`
	CreatedAt      time.Time `json:"created_at"`
}

// Roll records one seeded target for audit.
type Roll struct {
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          uint64 `json:"nonce"`
	Rows           int    `json:"rows"`
	Slot           int    `json:"slot"`
}

// SeededSource is a provably fair source: every target is derived from a
// committed server seed, the player's client seed and an incrementing nonce.
type SeededSource struct {
	mu         sync.Mutex
	serverSeed string
	hash       string
	clientSeed string
	nonce      uint64
	createdAt  time.Time
	last       *Roll
	previous   *SeedState
}

// NewSeededSource starts a source with a fresh server seed.
func NewSeededSource(clientSeed string) (*SeededSource, error) {
	seed, hash, err := GenerateServerSeed()
	if err != nil {
		return nil, err
	}
	return &SeededSource{serverSeed: seed, hash: hash, clientSeed: clientSeed, createdAt: time.Now()}, nil
}

// RestoreSeededSource rebuilds a source from persisted secret state.
func RestoreSeededSource(serverSeed, clientSeed string, nonce uint64, createdAt time.Time) *SeededSource {
	return &SeededSource{serverSeed: serverSeed, hash: HashSeed(serverSeed), clientSeed: clientSeed, nonce: nonce, createdAt: createdAt}
}

func (s *SeededSource) TargetSlot(ctx context.Context, rows int, risk game.Risk, betAmount float64) (*int, error) {
	roll := s.Next(rows)
	return &roll.Slot, nil
}

// Next derives the slot for the current nonce and advances it.
func (s *SeededSource) Next(rows int) Roll {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := DeriveSlot(s.serverSeed, s.clientSeed, s.nonce, rows)
	roll := Roll{ServerSeedHash: s.hash, ClientSeed: s.clientSeed, Nonce: s.nonce, Rows: rows, Slot: slot}
	s.last = &roll
	s.nonce++
	return roll
}

// SetClientSeed changes the client seed. Once a roll has been drawn on the
// current server seed, a change also rotates the server seed, so a player
// can never return to a seed pair with an earlier nonce and replay rolls
// already seen. The revealed state is returned when that happens.
func (s *SeededSource) SetClientSeed(clientSeed string) (*SeedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clientSeed == s.clientSeed {
		return nil, nil
	}
	if s.nonce == 0 {
		s.clientSeed = clientSeed
		return nil, nil
	}
	revealed, err := s.rotateLocked()
	if err != nil {
		return nil, err
	}
	s.clientSeed = clientSeed
	return &revealed, nil
}

// Rotate replaces the server seed and returns the revealed previous state.
func (s *SeededSource) Rotate() (SeedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotateLocked()
}

func (s *SeededSource) rotateLocked() (SeedState, error) {
	seed, hash, err := GenerateServerSeed()
	if err != nil {
		return SeedState{}, err
	}
	revealed := SeedState{
		ServerSeed:     s.serverSeed,
		ServerSeedHash: s.hash,
		ClientSeed:     s.clientSeed,
		Nonce:          s.nonce,
		CreatedAt:      s.createdAt,
	}
	s.serverSeed, s.hash = seed, hash
	s.nonce = 0
	s.createdAt = time.Now()
	s.last = nil
	s.previous = &revealed
	return revealed, nil
}

// Previous returns the most recently revealed seed, if any.
func (s *SeededSource) Previous() (SeedState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.previous == nil {
		return SeedState{}, false
	}
	return *s.previous, true
}

// State returns the public commitment without the server seed.
func (s *SeededSource) State() SeedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SeedState{ServerSeedHash: s.hash, ClientSeed: s.clientSeed, Nonce: s.nonce, CreatedAt: s.createdAt}
}

// LastRoll returns the most recent target, if any.
func (s *SeededSource) LastRoll() (Roll, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Roll{}, false
	}
	return *s.last, true
}

func (s *SeededSource) secret() secretState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return secretState{ServerSeed: s.serverSeed, ClientSeed: s.clientSeed, Nonce: s.nonce, CreatedAt: s.createdAt}
}

// Verify recomputes a revealed roll.
func Verify(serverSeed, serverSeedHash, clientSeed string, nonce uint64, rows, slot int) bool {
	return VerifySeed(serverSeed, serverSeedHash) && DeriveSlot(serverSeed, clientSeed, nonce, rows) == slot
}
