package game

import (
	"context"
	"log"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// RecordProgress is reported after every finished run.
type RecordProgress struct {
	Rows     int `json:"rows"`
	Recorded int `json:"recorded"`
	Target   int `json:"target"`
	Attempts int `json:"attempts"`
	Failed   int `json:"failed"`
}

// Ratio is recorded / target, 1 when there is nothing to record.
func (p RecordProgress) Ratio() float64 {
	if p.Target <= 0 {
		return 1
	}
	return float64(p.Recorded) / float64(p.Target)
}

// RecordStats summarises a recording session.
type RecordStats struct {
	Rows      int  `json:"rows"`
	Attempts  int  `json:"attempts"`
	Accepted  int  `json:"accepted"`
	Discarded int  `json:"discarded"`
	Failed    int  `json:"failed"`
	Complete  bool `json:"complete"`
	Cancelled bool `json:"cancelled"`
}

// RecorderOptions configures a PathRecorder. The zero value records on one
// worker with default tuning.
type RecorderOptions struct {
	Workers    int
	YieldEvery int
	Yield      func()
	MaxSteps   int
	Tuning     *TuningFile
	Seed       int64

	// Into, when set, receives every accepted path and its existing counts
	// reduce how many paths are still needed per slot.
	Into *PathLibrary

	OnProgress func(RecordProgress)
	// Persist is called every PersistEvery accepted paths and once at the end,
	// with the buckets recorded so far (Into's buckets when Into is set).
	Persist      func(ctx context.Context, rows int, buckets SlotBuckets) error
	PersistEvery int
}

// PathRecorder collects physically simulated paths per landing slot.
type PathRecorder struct {
	opts RecorderOptions
}

func NewPathRecorder(opts RecorderOptions) *PathRecorder {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.YieldEvery <= 0 {
		opts.YieldEvery = DefaultYieldEvery
	}
	if opts.Yield == nil {
		opts.Yield = runtime.Gosched
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = MaxSteps
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	return &PathRecorder{opts: opts}
}

type runResult struct {
	slot int
	path RecordedPath
	ok   bool
}

// RecordSamples runs headless drops from random spawn points until every slot
// holds samplesPerSlot paths or maxAttempts runs have been made. The returned
// library holds only the paths recorded by this call. A partial library is
// not an error. On cancellation the partial library is returned with ctx.Err().
func (r *PathRecorder) RecordSamples(ctx context.Context, rows, samplesPerSlot, maxAttempts int) (*PathLibrary, RecordStats, error) {
	stats := RecordStats{Rows: rows}
	board, err := BuildBoard(rows)
	if err != nil {
		return nil, stats, err
	}
	if samplesPerSlot <= 0 {
		samplesPerSlot = DefaultSamplesPerSlot
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	fragment := NewPathLibrary(samplesPerSlot)
	slotCount := board.SlotCount()
	need := make([]int, slotCount)
	target := 0
	var existing map[int]int
	if r.opts.Into != nil {
		existing = r.opts.Into.Counts(rows)
	}
	for s := range need {
		need[s] = samplesPerSlot - existing[s]
		if need[s] < 0 {
			need[s] = 0
		}
		target += need[s]
	}
	if target == 0 {
		stats.Complete = true
		return fragment, stats, nil
	}

	log.Printf("[RECORDER] recording rows=%d target=%d per_slot=%d max_attempts=%d workers=%d", rows, target, samplesPerSlot, maxAttempts, r.opts.Workers)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var attempts atomic.Int64
	results := make(chan runResult, r.opts.Workers)
	g, gctx := errgroup.WithContext(runCtx)
	for w := 0; w < r.opts.Workers; w++ {
		rng := rand.New(rand.NewSource(r.opts.Seed + int64(w)))
		g.Go(func() error {
			tuning := r.opts.Tuning.For(rows)
			world := NewWorld(board, WorldOptions{Tuning: &tuning, Rand: rng})
			for {
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				n := attempts.Add(1)
				if n > int64(maxAttempts) {
					return nil
				}
				if n%int64(r.opts.YieldEvery) == 0 {
					r.opts.Yield()
				}
				slot, path, ok := r.runHeadless(world, rng)
				select {
				case results <- runResult{slot: slot, path: path, ok: ok}:
				case <-gctx.Done():
					return nil
				}
			}
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	recorded := 0
	sincePersist := 0
	for res := range results {
		stats.Attempts++
		switch {
		case !res.ok:
			stats.Failed++
		case res.slot < slotCount && need[res.slot] > 0 && fragment.Append(rows, res.slot, res.path, need[res.slot]):
			stats.Accepted++
			recorded++
			sincePersist++
			if r.opts.Into != nil {
				r.opts.Into.Append(rows, res.slot, res.path, samplesPerSlot)
			}
		default:
			stats.Discarded++
		}

		if r.opts.OnProgress != nil {
			r.opts.OnProgress(RecordProgress{Rows: rows, Recorded: recorded, Target: target, Attempts: stats.Attempts, Failed: stats.Failed})
		}
		if r.opts.PersistEvery > 0 && sincePersist >= r.opts.PersistEvery {
			sincePersist = 0
			r.persist(runCtx, rows, fragment)
		}
		if recorded >= target {
			stop()
		}
	}

	stats.Complete = recorded >= target
	// The final save must survive cancellation of the recording itself.
	r.persist(context.WithoutCancel(ctx), rows, fragment)

	if err := ctx.Err(); err != nil && !stats.Complete {
		stats.Cancelled = true
		log.Printf("[RECORDER] cancelled rows=%d recorded=%d/%d attempts=%d", rows, recorded, target, stats.Attempts)
		return fragment, stats, err
	}
	log.Printf("[RECORDER] finished rows=%d recorded=%d/%d attempts=%d failed=%d complete=%v", rows, recorded, target, stats.Attempts, stats.Failed, stats.Complete)
	return fragment, stats, nil
}

func (r *PathRecorder) persist(ctx context.Context, rows int, fragment *PathLibrary) {
	if r.opts.Persist == nil {
		return
	}
	buckets := fragment.Snapshot(rows)
	if r.opts.Into != nil {
		buckets = r.opts.Into.Snapshot(rows)
	}
	if err := r.opts.Persist(ctx, rows, buckets); err != nil {
		log.Printf("[RECORDER] persist rows=%d failed: %v", rows, err)
	}
}

// runHeadless drops one ball from a random x and records its position every
// step until the position fallback classifies it. The ball is always removed
// from the world before returning.
func (r *PathRecorder) runHeadless(world *World, rng *rand.Rand) (int, RecordedPath, bool) {
	board := world.Board()
	detector := NewBinDetector(board, 0)
	ball := world.AddBall(board.RandomSpawnX(rng), board.SpawnY, board.BallRadius, BallFilter)
	defer world.RemoveBody(ball)

	path := make(RecordedPath, 0, 256)
	path = append(path, Point{X: ball.Position.X, Y: ball.Position.Y})
	for i := 0; i < r.opts.MaxSteps; i++ {
		world.Step(TimeStep)
		path = append(path, Point{X: ball.Position.X, Y: ball.Position.Y})
		if l, ok := detector.Poll(ball, world.StepCount()); ok {
			path = append(path, Point{X: l.X, Y: l.Y})
			return l.Slot, path, true
		}
	}
	return 0, nil, false
}
