package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/plinko/internal/config"
	"github.com/playmatatu/plinko/internal/fairness"
	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/history"
)

// Drop modes.
const (
	ModeFair   = "fair"
	ModeRandom = "random"
	ModeFree   = "free"
)

var (
	ErrMissingBoard = errors.New("board_id required")
	ErrInvalidMode  = errors.New("invalid drop mode")
	ErrBetTooLarge  = errors.New("bet amount above maximum")
)

// DropInput is a drop request from the HTTP or websocket surface.
type DropInput struct {
	BoardID    string    `json:"board_id"`
	BetAmount  float64   `json:"bet_amount"`
	Rows       int       `json:"rows"`
	Risk       game.Risk `json:"risk"`
	Mode       string    `json:"mode"`
	ClientSeed string    `json:"client_seed,omitempty"`
}

// DropOutcome is a settled drop with its audit trail.
type DropOutcome struct {
	*game.DropResult
	DropID   int64          `json:"drop_id,omitempty"`
	BoardID  string         `json:"board_id"`
	Mode     string         `json:"mode"`
	Fairness *fairness.Roll `json:"fairness,omitempty"`
}

// DropService resolves the outcome source for a drop, runs it on the board
// and records the result.
type DropService struct {
	boards   *game.BoardManager
	registry *fairness.Registry
	random   *fairness.RandomSource
	db       *sqlx.DB

	mu     sync.RWMutex
	maxBet float64
}

// NewDropService wires a service. db may be nil, in which case drops are
// not persisted.
func NewDropService(boards *game.BoardManager, registry *fairness.Registry, db *sqlx.DB, maxBet float64) *DropService {
	return &DropService{
		boards:   boards,
		registry: registry,
		random:   fairness.NewRandomSource(0),
		db:       db,
		maxBet:   maxBet,
	}
}

// SetMaxBet changes the bet limit checked by Drop. Zero disables it.
func (s *DropService) SetMaxBet(maxBet float64) {
	s.mu.Lock()
	s.maxBet = maxBet
	s.mu.Unlock()
}

func (s *DropService) maxBetAmount() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxBet
}

// ApplyConfig pushes runtime settings into the service: the bet limit
// applies to the next drop, playback options to boards created afterwards.
// The path tuning in use is kept.
func (s *DropService) ApplyConfig(cfg config.Config) {
	s.SetMaxBet(cfg.MaxBetAmount)
	s.boards.SetOptions(PlayerOptions(&cfg, s.boards.Options().Tuning))
}

// PlayerOptions maps config onto playback options.
func PlayerOptions(cfg *config.Config, tuning *game.TuningFile) game.PlayerOptions {
	return game.PlayerOptions{
		TickInterval:   cfg.TickInterval(),
		ReplaySpeed:    cfg.ReplaySpeed,
		GuidedBias:     cfg.GuidedBias,
		GuidedGain:     cfg.GuidedGain,
		GuidedDeadband: cfg.GuidedDeadband,
		GuidedMaxForce: cfg.GuidedMaxForce,
		GuidedDamping:  cfg.GuidedDamping,
		Tuning:         tuning,
	}
}

// seededTarget captures the roll behind a fair drop.
type seededTarget struct {
	src  *fairness.SeededSource
	roll *fairness.Roll
}

func (t *seededTarget) TargetSlot(ctx context.Context, rows int, risk game.Risk, betAmount float64) (*int, error) {
	roll := t.src.Next(rows)
	t.roll = &roll
	return &roll.Slot, nil
}

// Drop validates in, runs the drop and records it. Frames go to sink when
// it is non-nil.
func (s *DropService) Drop(ctx context.Context, in DropInput, sink game.FrameSink) (*DropOutcome, error) {
	in.BoardID = strings.TrimSpace(in.BoardID)
	if in.BoardID == "" {
		return nil, ErrMissingBoard
	}
	if in.Mode == "" {
		in.Mode = ModeFair
	}
	if maxBet := s.maxBetAmount(); maxBet > 0 && in.BetAmount > maxBet {
		return nil, fmt.Errorf("%w: %.2f > %.2f", ErrBetTooLarge, in.BetAmount, maxBet)
	}

	req := game.DropRequest{BetAmount: in.BetAmount, Rows: in.Rows, Risk: in.Risk}
	var seeded *seededTarget
	switch in.Mode {
	case ModeFair:
		src, err := s.registry.Source(ctx, in.BoardID, in.ClientSeed)
		if err != nil {
			return nil, err
		}
		seeded = &seededTarget{src: src}
		req.Source = seeded
	case ModeRandom:
		req.Source = s.random
	case ModeFree:
		req.Source = fairness.FreeSource{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, in.Mode)
	}

	res, err := s.boards.Drop(ctx, in.BoardID, req, sink)
	if err != nil {
		return nil, err
	}

	out := &DropOutcome{DropResult: res, BoardID: in.BoardID, Mode: in.Mode}
	var seed *history.Seed
	if seeded != nil && seeded.roll != nil {
		out.Fairness = seeded.roll
		seed = &history.Seed{ServerSeedHash: seeded.roll.ServerSeedHash, ClientSeed: seeded.roll.ClientSeed, Nonce: seeded.roll.Nonce}
		if err := s.registry.Save(ctx, in.BoardID); err != nil {
			log.Printf("[FAIRNESS] failed to save seed state for board %s: %v", in.BoardID, err)
		}
	}

	if s.db != nil {
		rec := history.NewRecord(in.BoardID, in.Mode, res, seed)
		id, err := history.Record(context.WithoutCancel(ctx), s.db, rec)
		if err != nil {
			log.Printf("[DROP] failed to record drop for board %s: %v", in.BoardID, err)
		} else {
			out.DropID = id
		}
	}

	log.Printf("[DROP] board=%s mode=%s rows=%d risk=%s strategy=%s slot=%d multiplier=%.2f", in.BoardID, in.Mode, res.Rows, res.Risk, res.Strategy, res.Slot, res.Multiplier)
	return out, nil
}

// Boards exposes the underlying board manager.
func (s *DropService) Boards() *game.BoardManager { return s.boards }

// Registry exposes the fairness registry.
func (s *DropService) Registry() *fairness.Registry { return s.registry }
