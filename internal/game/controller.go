package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"
)

var (
	ErrInvalidSlot = errors.New("invalid slot")
	ErrInvalidBet  = errors.New("invalid bet amount")
)

// OutcomeSource supplies the slot a drop must land in, or nil for a free
// drop.
type OutcomeSource interface {
	TargetSlot(ctx context.Context, rows int, risk Risk, betAmount float64) (*int, error)
}

// LibraryReader is the read side of a path library.
type LibraryReader interface {
	Snapshot(rows int) SlotBuckets
}

// DropRequest asks for one ball. TargetSlot takes priority over Source; when
// both are nil the drop is free.
type DropRequest struct {
	BetAmount  float64       `json:"bet_amount"`
	Rows       int           `json:"rows"`
	Risk       Risk          `json:"risk"`
	TargetSlot *int          `json:"target_slot,omitempty"`
	Source     OutcomeSource `json:"-"`
}

// DropResult is the settled outcome of one drop. Crediting the payout is the
// caller's job.
type DropResult struct {
	Rows        int          `json:"rows"`
	Risk        string       `json:"risk"`
	BetAmount   float64      `json:"bet_amount"`
	Slot        int          `json:"slot"`
	Multiplier  float64      `json:"multiplier"`
	Payout      float64      `json:"payout"`
	Profit      float64      `json:"profit"`
	Won         bool         `json:"won"`
	Strategy    PlaybackKind `json:"strategy"`
	TargetSlot  *int         `json:"target_slot,omitempty"`
	Discrepancy bool         `json:"discrepancy"`
	Steps       int          `json:"steps"`
	Landing     Landing      `json:"landing"`
}

// DropController runs drops on one board, one at a time.
type DropController struct {
	library LibraryReader
	source  OutcomeSource
	opts    PlayerOptions
	rng     *rand.Rand

	sem     chan struct{}
	players map[int]*OutcomePlayer
}

// NewDropController creates a controller. source may be nil, in which case
// requests without a source or target are free drops.
func NewDropController(library LibraryReader, source OutcomeSource, opts PlayerOptions, seed int64) *DropController {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DropController{
		library: library,
		source:  source,
		opts:    opts,
		rng:     rand.New(rand.NewSource(seed)),
		sem:     make(chan struct{}, 1),
		players: make(map[int]*OutcomePlayer),
	}
}

// Drop resolves a target, plays the ball and settles the result.
func (c *DropController) Drop(ctx context.Context, req DropRequest) (*DropResult, error) {
	return c.DropWithSink(ctx, req, nil)
}

// DropWithSink is Drop with every simulation frame delivered to sink. A new
// drop waits until the previous ball has been removed.
func (c *DropController) DropWithSink(ctx context.Context, req DropRequest, sink FrameSink) (*DropResult, error) {
	if req.BetAmount < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBet, req.BetAmount)
	}
	table, err := Multipliers(req.Rows, req.Risk)
	if err != nil {
		return nil, err
	}
	if req.TargetSlot != nil && (*req.TargetSlot < 0 || *req.TargetSlot >= len(table)) {
		return nil, fmt.Errorf("%w: target %d for rows %d", ErrInvalidSlot, *req.TargetSlot, req.Rows)
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	player, err := c.player(req.Rows)
	if err != nil {
		return nil, err
	}

	target := req.TargetSlot
	if target == nil {
		source := req.Source
		if source == nil {
			source = c.source
		}
		if source != nil {
			target, err = source.TargetSlot(ctx, req.Rows, req.Risk, req.BetAmount)
			if err != nil {
				return nil, fmt.Errorf("resolve target slot: %w", err)
			}
			if target != nil && (*target < 0 || *target >= len(table)) {
				return nil, fmt.Errorf("%w: source returned %d for rows %d", ErrInvalidSlot, *target, req.Rows)
			}
		}
	}

	var buckets SlotBuckets
	if target != nil && c.library != nil {
		buckets = c.library.Snapshot(req.Rows)
	}
	strategy := player.Choose(target, buckets)

	landing, err := player.Play(ctx, strategy, sink)
	if err != nil {
		log.Printf("[DROP] %s drop failed rows=%d risk=%s: %v", strategy.Kind, req.Rows, req.Risk, err)
		return nil, err
	}

	multiplier := table[landing.Slot]
	payout := req.BetAmount * multiplier
	result := &DropResult{
		Rows:       req.Rows,
		Risk:       req.Risk.String(),
		BetAmount:  req.BetAmount,
		Slot:       landing.Slot,
		Multiplier: multiplier,
		Payout:     payout,
		Profit:     payout - req.BetAmount,
		Won:        multiplier >= 1,
		Strategy:   strategy.Kind,
		TargetSlot: target,
		Steps:      landing.Step,
		Landing:    landing,
	}
	if target != nil && landing.Slot != *target {
		result.Discrepancy = true
		log.Printf("[FAIRNESS] %s drop landed in slot %d, promised %d (rows=%d risk=%s bet=%.2f)", strategy.Kind, landing.Slot, *target, req.Rows, req.Risk, req.BetAmount)
	}
	return result, nil
}

// Busy reports whether a drop is in flight.
func (c *DropController) Busy() bool {
	return len(c.sem) > 0
}

func (c *DropController) player(rows int) (*OutcomePlayer, error) {
	if p, ok := c.players[rows]; ok {
		return p, nil
	}
	board, err := BuildBoard(rows)
	if err != nil {
		return nil, err
	}
	p := NewOutcomePlayer(board, c.opts, rand.New(rand.NewSource(c.rng.Int63())))
	c.players[rows] = p
	return p, nil
}
