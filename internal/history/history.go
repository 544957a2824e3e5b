package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/models"
	"github.com/shopspring/decimal"
)

// Seed identifies the seeded roll behind a fair drop.
type Seed struct {
	ServerSeedHash string
	ClientSeed     string
	Nonce          uint64
}

// NewRecord converts a settled drop into a history row. Money is rounded to
// cents; the multiplier keeps its table precision.
func NewRecord(boardID, mode string, res *game.DropResult, seed *Seed) models.DropRecord {
	rec := models.DropRecord{
		BoardID:     boardID,
		Rows:        res.Rows,
		Risk:        res.Risk,
		Mode:        mode,
		Strategy:    res.Strategy.String(),
		Slot:        res.Slot,
		Multiplier:  decimal.NewFromFloat(res.Multiplier),
		BetAmount:   decimal.NewFromFloat(res.BetAmount).Round(2),
		Discrepancy: res.Discrepancy,
		Steps:       res.Steps,
	}
	rec.Payout = rec.BetAmount.Mul(rec.Multiplier).Round(2)
	rec.Profit = rec.Payout.Sub(rec.BetAmount)
	if res.TargetSlot != nil {
		rec.TargetSlot = sql.NullInt64{Int64: int64(*res.TargetSlot), Valid: true}
	}
	if seed != nil {
		rec.ServerSeedHash = sql.NullString{String: seed.ServerSeedHash, Valid: true}
		rec.ClientSeed = sql.NullString{String: seed.ClientSeed, Valid: true}
		rec.Nonce = sql.NullInt64{Int64: int64(seed.Nonce), Valid: true}
	}
	return rec
}

// Record inserts a drop and returns its id.
func Record(ctx context.Context, db *sqlx.DB, rec models.DropRecord) (int64, error) {
	var id int64
	err := db.QueryRowxContext(ctx, `
		INSERT INTO drops (board_id, rows, risk, mode, strategy, target_slot, slot, multiplier,
			bet_amount, payout, profit, discrepancy, steps, server_seed_hash, client_seed, nonce, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
		RETURNING id
	`, rec.BoardID, rec.Rows, rec.Risk, rec.Mode, rec.Strategy, rec.TargetSlot, rec.Slot, rec.Multiplier,
		rec.BetAmount, rec.Payout, rec.Profit, rec.Discrepancy, rec.Steps, rec.ServerSeedHash, rec.ClientSeed, rec.Nonce).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert drop: %w", err)
	}
	return id, nil
}

// List returns a board's drops, newest first. An empty boardID lists all.
func List(ctx context.Context, db *sqlx.DB, boardID string, limit, offset int) ([]models.DropRecord, error) {
	drops := []models.DropRecord{}
	query := `
		SELECT id, board_id, rows, risk, mode, strategy, target_slot, slot, multiplier, bet_amount,
			payout, profit, discrepancy, steps, server_seed_hash, client_seed, nonce, created_at
		FROM drops
	`
	var err error
	if boardID == "" {
		err = db.SelectContext(ctx, &drops, query+` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		err = db.SelectContext(ctx, &drops, query+` WHERE board_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, boardID, limit, offset)
	}
	return drops, err
}

// Summary aggregates a board's drops.
type Summary struct {
	Drops         int             `db:"drops" json:"drops"`
	Wagered       decimal.Decimal `db:"wagered" json:"wagered"`
	PaidOut       decimal.Decimal `db:"paid_out" json:"paid_out"`
	Discrepancies int             `db:"discrepancies" json:"discrepancies"`
}

// Summarize returns totals for boardID.
func Summarize(ctx context.Context, db *sqlx.DB, boardID string) (Summary, error) {
	var s Summary
	err := db.GetContext(ctx, &s, `
		SELECT COUNT(*) AS drops,
			COALESCE(SUM(bet_amount), 0) AS wagered,
			COALESCE(SUM(payout), 0) AS paid_out,
			COUNT(*) FILTER (WHERE discrepancy) AS discrepancies
		FROM drops
		WHERE board_id = $1
	`, boardID)
	return s, err
}
