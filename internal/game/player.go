package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"
)

var ErrNoLanding = errors.New("ball did not land")

// PlaybackKind selects how a drop is animated.
type PlaybackKind int

const (
	// PlaybackFree is an unconstrained live simulation.
	PlaybackFree PlaybackKind = iota
	// PlaybackReplay drives the ball through a recorded path.
	PlaybackReplay
	// PlaybackGuided is a live simulation nudged toward a target slot.
	PlaybackGuided
)

func (k PlaybackKind) String() string {
	switch k {
	case PlaybackFree:
		return "free"
	case PlaybackReplay:
		return "replay"
	case PlaybackGuided:
		return "guided"
	}
	return fmt.Sprintf("playback(%d)", int(k))
}

func (k PlaybackKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// PlaybackStrategy is chosen once per drop. TargetSlot is -1 for free drops.
type PlaybackStrategy struct {
	Kind       PlaybackKind `json:"kind"`
	TargetSlot int          `json:"target_slot"`
	Path       RecordedPath `json:"-"`
	TargetX    float64      `json:"target_x"`
}

// PlayerOptions tunes playback. A zero TickInterval steps as fast as
// possible.
type PlayerOptions struct {
	TickInterval   time.Duration
	ReplaySpeed    float64
	GuidedBias     float64
	GuidedGain     float64
	GuidedDeadband float64
	GuidedMaxForce float64
	GuidedDamping  float64
	MaxSteps       int
	FallbackDelay  int
	SettleSteps    int
	Tuning         *TuningFile
}

// OutcomePlayer animates one drop at a time on a board. It is not safe for
// concurrent use; DropController serialises access.
type OutcomePlayer struct {
	board *BoardConfig
	opts  PlayerOptions
	rng   *rand.Rand
}

func NewOutcomePlayer(board *BoardConfig, opts PlayerOptions, rng *rand.Rand) *OutcomePlayer {
	if opts.ReplaySpeed <= 0 {
		opts.ReplaySpeed = DefaultReplaySpeed
	}
	if opts.GuidedBias <= 0 {
		opts.GuidedBias = DefaultGuidedBias
	}
	if opts.GuidedGain <= 0 {
		opts.GuidedGain = DefaultGuidedGain
	}
	if opts.GuidedDeadband <= 0 {
		opts.GuidedDeadband = board.PinSpacingX / 8
	}
	if opts.GuidedMaxForce <= 0 {
		opts.GuidedMaxForce = DefaultGuidedMaxForce
	}
	if opts.GuidedDamping <= 0 {
		opts.GuidedDamping = DefaultGuidedDamping
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = MaxSteps
	}
	if opts.FallbackDelay <= 0 {
		opts.FallbackDelay = FallbackDelaySteps
	}
	switch {
	case opts.SettleSteps == 0:
		opts.SettleSteps = SettleSteps
	case opts.SettleSteps < 0:
		opts.SettleSteps = 0
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &OutcomePlayer{board: board, opts: opts, rng: rng}
}

func (p *OutcomePlayer) Board() *BoardConfig { return p.board }

// Choose picks the playback strategy for a target. A nil target is a free
// drop; a target with recorded paths replays one chosen uniformly; any other
// target falls back to a guided drop.
func (p *OutcomePlayer) Choose(target *int, buckets SlotBuckets) PlaybackStrategy {
	if target == nil {
		return PlaybackStrategy{Kind: PlaybackFree, TargetSlot: -1}
	}
	slot := *target
	x := p.board.SlotCenter(slot)
	if paths := buckets[slot]; len(paths) > 0 {
		return PlaybackStrategy{
			Kind:       PlaybackReplay,
			TargetSlot: slot,
			Path:       paths[p.rng.Intn(len(paths))],
			TargetX:    x,
		}
	}
	return PlaybackStrategy{Kind: PlaybackGuided, TargetSlot: slot, TargetX: x}
}

// Play runs the strategy to a landing. Frames go to sink when it is non-nil.
// The ball body is removed before Play returns.
func (p *OutcomePlayer) Play(ctx context.Context, s PlaybackStrategy, sink FrameSink) (Landing, error) {
	tuning := p.opts.Tuning.For(p.board.Rows)
	world := NewWorld(p.board, WorldOptions{
		Rendered: sink != nil,
		Sink:     sink,
		Tuning:   &tuning,
		Rand:     p.rng,
	})
	detector := NewBinDetector(p.board, p.opts.FallbackDelay)

	var tick <-chan time.Time
	if p.opts.TickInterval > 0 {
		t := time.NewTicker(p.opts.TickInterval)
		defer t.Stop()
		tick = t.C
	}

	if s.Kind == PlaybackReplay && len(s.Path) == 0 {
		log.Printf("[PLAYER] empty recorded path for slot %d, falling back to guided", s.TargetSlot)
		s.Kind = PlaybackGuided
	}
	if s.Kind == PlaybackReplay {
		return p.replay(ctx, world, detector, s.Path, tick)
	}
	return p.live(ctx, world, detector, s, tick)
}

func (p *OutcomePlayer) replay(ctx context.Context, world *World, detector *BinDetector, path RecordedPath, tick <-chan time.Time) (Landing, error) {
	ball := world.AddBall(path[0].X, path[0].Y, p.board.BallRadius, BallFilter)
	defer world.RemoveBody(ball)
	world.SetKinematic(ball, true)

	last := len(path) - 1
	cursor := 0.0
	for {
		if err := waitTick(ctx, tick); err != nil {
			return Landing{}, err
		}
		cursor += p.opts.ReplaySpeed
		i := int(cursor)
		if i >= last {
			world.SetPosition(ball, Vec2{X: path[last].X, Y: path[last].Y})
			world.Step(TimeStep)
			landing, _ := detector.Complete(ball, world.StepCount())
			p.settle(ctx, world, ball, landing, tick)
			return landing, nil
		}
		a, b := path[i], path[i+1]
		frac := cursor - float64(i)
		world.SetPosition(ball, Vec2{X: lerp(a.X, b.X, frac), Y: lerp(a.Y, b.Y, frac)})
		world.Step(TimeStep)
	}
}

func (p *OutcomePlayer) live(ctx context.Context, world *World, detector *BinDetector, s PlaybackStrategy, tick <-chan time.Time) (Landing, error) {
	guided := s.Kind == PlaybackGuided
	x := p.board.RandomSpawnX(p.rng)
	if guided {
		x = p.guidedSpawnX(s.TargetX)
	}
	ball := world.AddBall(x, p.board.SpawnY, p.board.BallRadius, BallFilter)
	route := guideLine{fromX: x, fromY: p.board.SpawnY, toX: s.TargetX, toY: p.board.CommitY}
	defer world.RemoveBody(ball)

	var landing *Landing
	world.OnSensorHit(func(b *Body, step int) {
		if b.ID != ball.ID {
			return
		}
		if l, ok := detector.SensorHit(b, step); ok {
			landing = &l
		}
	})

	for i := 0; i < p.opts.MaxSteps; i++ {
		if err := waitTick(ctx, tick); err != nil {
			return Landing{}, err
		}
		if guided {
			world.ApplyForce(ball, p.guidedForce(route, ball.Position, ball.Velocity))
		}
		world.Step(TimeStep)
		if landing == nil {
			if l, ok := detector.Poll(ball, world.StepCount()); ok {
				landing = &l
			}
		}
		if landing != nil {
			p.settle(ctx, world, ball, *landing, tick)
			return *landing, nil
		}
	}
	log.Printf("[PLAYER] %s drop abandoned rows=%d after %d steps at (%.1f, %.1f)", s.Kind, p.board.Rows, p.opts.MaxSteps, ball.Position.X, ball.Position.Y)
	return Landing{}, fmt.Errorf("%w: rows=%d after %d steps", ErrNoLanding, p.board.Rows, p.opts.MaxSteps)
}

// guidedSpawnX blends the board center toward the target, clamped to the
// top span, then jitters within a ball radius of that point so guided drops
// toward the same slot do not all follow one trajectory.
func (p *OutcomePlayer) guidedSpawnX(targetX float64) float64 {
	lo, hi := p.board.TopSpan()
	x := clamp(lerp(p.board.CenterX(), targetX, p.opts.GuidedBias), lo, hi)
	w := p.board.BallRadius
	a, b := math.Max(lo, x-w), math.Min(hi, x+w)
	return a + p.rng.Float64()*(b-a)
}

// guideLine is the straight route from the spawn point to the target slot
// center at the last pin row. The funnel is convex, so the route never
// leaves the board.
type guideLine struct {
	fromX, fromY float64
	toX, toY     float64
}

// at returns the route's x at height y and its slope dx/dy.
func (g guideLine) at(y float64) (float64, float64) {
	dy := g.toY - g.fromY
	if dy <= 0 {
		return g.toX, 0
	}
	slope := (g.toX - g.fromX) / dy
	t := clamp((y-g.fromY)/dy, 0, 1)
	return lerp(g.fromX, g.toX, t), slope
}

// guidedForce steers the ball along the route. The desired horizontal
// velocity follows the route's slope at the ball's fall speed plus a pull
// back onto it; the force closes the gap to that velocity, which also damps
// pin bounces. Errors within the deadband only get the damping. No force is
// applied once the ball is past the last pin row.
func (p *OutcomePlayer) guidedForce(g guideLine, pos, vel Vec2) Vec2 {
	if pos.Y >= g.toY {
		return Vec2{}
	}
	refX, slope := g.at(pos.Y)
	want := slope * math.Max(vel.Y, 0)
	if offset := refX - pos.X; math.Abs(offset) > p.opts.GuidedDeadband {
		want += offset * p.opts.GuidedGain
	}
	f := (want - vel.X) * p.opts.GuidedDamping
	return Vec2{X: clamp(f, -p.opts.GuidedMaxForce, p.opts.GuidedMaxForce)}
}

// settle snaps the ball onto its slot center and holds it there for a few
// frames so the render surface shows where it came to rest. The landing
// stands even if ctx ends mid-settle.
func (p *OutcomePlayer) settle(ctx context.Context, world *World, ball *Body, l Landing, tick <-chan time.Time) {
	world.SetKinematic(ball, true)
	world.SetPosition(ball, Vec2{X: l.X, Y: ball.Position.Y})
	if !world.Rendered() {
		return
	}
	for i := 0; i < p.opts.SettleSteps; i++ {
		if waitTick(ctx, tick) != nil {
			return
		}
		world.Step(TimeStep)
	}
}

// waitTick blocks until the next tick, or only checks ctx when unthrottled.
func waitTick(ctx context.Context, tick <-chan time.Time) error {
	if tick == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tick:
		return nil
	}
}
