package pathstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/models"
)

// PostgresStore keeps one row per recorded path in path_samples.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, rows int) (game.SlotBuckets, error) {
	var samples []models.PathSample
	err := s.db.SelectContext(ctx, &samples, `
		SELECT rows, slot, idx, points, created_at
		FROM path_samples
		WHERE rows = $1
		ORDER BY slot, idx
	`, rows)
	if err != nil {
		return nil, fmt.Errorf("select path samples rows=%d: %w", rows, err)
	}
	all, err := decodeSamples(samples)
	if err != nil {
		return nil, err
	}
	return all[rows], nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) (map[int]game.SlotBuckets, error) {
	var samples []models.PathSample
	err := s.db.SelectContext(ctx, &samples, `
		SELECT rows, slot, idx, points, created_at
		FROM path_samples
		ORDER BY rows, slot, idx
	`)
	if err != nil {
		return nil, fmt.Errorf("select path samples: %w", err)
	}
	return decodeSamples(samples)
}

// Save replaces every path for rows in one transaction.
func (s *PostgresStore) Save(ctx context.Context, rows int, buckets game.SlotBuckets) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM path_samples WHERE rows = $1`, rows); err != nil {
		return fmt.Errorf("clear path samples rows=%d: %w", rows, err)
	}

	slots := make([]int, 0, len(buckets))
	for slot := range buckets {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	saved := 0
	for _, slot := range slots {
		for idx, path := range buckets[slot] {
			points, err := json.Marshal(path)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO path_samples (rows, slot, idx, points, created_at)
				VALUES ($1, $2, $3, $4, NOW())
			`, rows, slot, idx, points); err != nil {
				return fmt.Errorf("insert path sample rows=%d slot=%d: %w", rows, slot, err)
			}
			saved++
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[PATHS] saved %d paths for rows=%d", saved, rows)
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, rows int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM path_samples WHERE rows = $1`, rows)
	return err
}

func decodeSamples(samples []models.PathSample) (map[int]game.SlotBuckets, error) {
	all := make(map[int]game.SlotBuckets)
	for _, sample := range samples {
		var path game.RecordedPath
		if err := json.Unmarshal(sample.Points, &path); err != nil {
			return nil, fmt.Errorf("decode path rows=%d slot=%d idx=%d: %w", sample.Rows, sample.Slot, sample.Idx, err)
		}
		buckets := all[sample.Rows]
		if buckets == nil {
			buckets = make(game.SlotBuckets)
			all[sample.Rows] = buckets
		}
		buckets[sample.Slot] = append(buckets[sample.Slot], path)
	}
	return all, nil
}
