package game

import (
	"math"
	"math/rand"
	"time"
)

// BodyID identifies a body within one World.
type BodyID int

// BodyKind distinguishes the simulated ball from static board geometry.
type BodyKind string

const (
	BodyBall   BodyKind = "ball"
	BodyPin    BodyKind = "pin"
	BodyWall   BodyKind = "wall"
	BodySensor BodyKind = "sensor"
)

// Category is a collision category bit.
type Category uint16

const (
	CategoryBall Category = 1 << iota
	CategoryPin
	CategoryWall
	CategorySensor
)

// CollisionFilter decides which bodies interact. Two bodies collide when each
// one's mask includes the other's category. A shared non-zero group overrides
// the masks: positive always collides, negative never does.
type CollisionFilter struct {
	Category Category
	Mask     Category
	Group    int
}

// BallFilter lets balls hit pins, walls and the sensor but never each other.
var BallFilter = CollisionFilter{
	Category: CategoryBall,
	Mask:     CategoryPin | CategoryWall | CategorySensor,
}

func (f CollisionFilter) CanCollide(o CollisionFilter) bool {
	if f.Group != 0 && f.Group == o.Group {
		return f.Group > 0
	}
	return f.Mask&o.Category != 0 && o.Mask&f.Category != 0
}

// Body is a simulated disc or a piece of static geometry. A body belongs to
// exactly one World.
type Body struct {
	ID        BodyID          `json:"id"`
	Kind      BodyKind        `json:"kind"`
	Position  Vec2            `json:"position"`
	Velocity  Vec2            `json:"velocity"`
	Radius    float64         `json:"radius"`
	Filter    CollisionFilter `json:"-"`
	Kinematic bool            `json:"kinematic"`

	segment Segment
	rect    Rect
	force   Vec2
	removed bool
}

// Frame is the ball state after one step, handed to the render surface.
type Frame struct {
	Step  int         `json:"step"`
	Balls []BallFrame `json:"balls"`
}

type BallFrame struct {
	ID BodyID  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// FrameSink receives a Frame after every step of a rendered world.
type FrameSink interface {
	Frame(Frame)
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(Frame)

func (f FrameSinkFunc) Frame(fr Frame) { f(fr) }

// SensorHandler is called once when a ball starts touching the bottom sensor.
type SensorHandler func(ball *Body, step int)

// WorldOptions configures NewWorld. Headless and rendered worlds share the
// same board construction; Rendered only controls frame delivery.
type WorldOptions struct {
	Rendered bool
	Sink     FrameSink
	Tuning   *Tuning
	Rand     *rand.Rand
}

// World is a 2D rigid-body simulation of one board.
type World struct {
	board    *BoardConfig
	tuning   Tuning
	rendered bool
	sink     FrameSink
	rng      *rand.Rand

	bodies  map[BodyID]*Body
	balls   []*Body
	pinRows [][]*Body
	walls   []*Body
	sensor  *Body
	nextID  BodyID
	step    int
	touches map[BodyID]bool

	sensorHandlers []SensorHandler
}

// NewWorld builds pins, walls and the bottom sensor for board.
func NewWorld(board *BoardConfig, opts WorldOptions) *World {
	tuning := DefaultTuning(board.Rows)
	if opts.Tuning != nil {
		tuning = *opts.Tuning
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	w := &World{
		board:    board,
		tuning:   tuning,
		rendered: opts.Rendered,
		sink:     opts.Sink,
		rng:      rng,
		bodies:   make(map[BodyID]*Body),
		touches:  make(map[BodyID]bool),
	}

	pinFilter := CollisionFilter{Category: CategoryPin, Mask: CategoryBall}
	w.pinRows = make([][]*Body, len(board.Pins))
	for r, row := range board.Pins {
		for _, p := range row {
			w.pinRows[r] = append(w.pinRows[r], w.addStatic(&Body{Kind: BodyPin, Position: p, Radius: board.PinRadius, Filter: pinFilter}))
		}
	}

	wallFilter := CollisionFilter{Category: CategoryWall, Mask: CategoryBall}
	for _, seg := range board.Walls() {
		w.walls = append(w.walls, w.addStatic(&Body{Kind: BodyWall, segment: seg, Filter: wallFilter}))
	}

	w.sensor = w.addStatic(&Body{
		Kind:   BodySensor,
		rect:   board.Sensor,
		Filter: CollisionFilter{Category: CategorySensor, Mask: CategoryBall},
	})

	return w
}

func (w *World) addStatic(b *Body) *Body {
	w.nextID++
	b.ID = w.nextID
	w.bodies[b.ID] = b
	return b
}

// Board returns the geometry the world was built from.
func (w *World) Board() *BoardConfig { return w.board }

// Rendered reports whether the world delivers frames.
func (w *World) Rendered() bool { return w.rendered }

// StepCount is the number of completed steps.
func (w *World) StepCount() int { return w.step }

// AddBall creates a dynamic disc at (x, y).
func (w *World) AddBall(x, y, radius float64, filter CollisionFilter) *Body {
	w.nextID++
	b := &Body{
		ID:       w.nextID,
		Kind:     BodyBall,
		Position: Vec2{X: x, Y: y},
		Radius:   radius,
		Filter:   filter,
	}
	w.bodies[b.ID] = b
	w.balls = append(w.balls, b)
	return b
}

// RemoveBody detaches a body from the world. Removing twice is a no-op.
func (w *World) RemoveBody(b *Body) {
	if b == nil || b.removed {
		return
	}
	if _, ok := w.bodies[b.ID]; !ok {
		return
	}
	b.removed = true
	delete(w.bodies, b.ID)
	delete(w.touches, b.ID)
	if b.Kind == BodyBall {
		for i, ball := range w.balls {
			if ball == b {
				w.balls = append(w.balls[:i], w.balls[i+1:]...)
				break
			}
		}
	}
}

// BodyCount returns the number of live bodies, static geometry included.
func (w *World) BodyCount() int { return len(w.bodies) }

// Balls returns the live balls in creation order.
func (w *World) Balls() []*Body {
	return append([]*Body(nil), w.balls...)
}

// OnSensorHit registers a handler for balls entering the bottom sensor.
func (w *World) OnSensorHit(h SensorHandler) {
	w.sensorHandlers = append(w.sensorHandlers, h)
}

// ApplyForce accumulates a force for the next step. Balls have unit mass.
func (w *World) ApplyForce(b *Body, f Vec2) {
	b.force = b.force.Plus(f)
}

func (w *World) SetPosition(b *Body, p Vec2) { b.Position = p }

func (w *World) SetVelocity(b *Body, v Vec2) { b.Velocity = v }

// SetKinematic makes a ball follow positions set by the caller, with no
// gravity and no collision response.
func (w *World) SetKinematic(b *Body, kinematic bool) {
	b.Kinematic = kinematic
	if kinematic {
		b.Velocity = Vec2{}
	}
}

func (w *World) Position(b *Body) Vec2 { return b.Position }

// Step advances the simulation by dt seconds.
func (w *World) Step(dt float64) {
	sub := w.tuning.SubSteps
	if sub < 1 {
		sub = 1
	}
	h := dt / float64(sub)
	gravity := Vec2{Y: w.tuning.Gravity}

	for i := 0; i < sub; i++ {
		for _, ball := range w.balls {
			if ball.Kinematic {
				continue
			}
			ball.Velocity = ball.Velocity.Plus(gravity.Plus(ball.force).Times(h))
			ball.Position = ball.Position.Plus(ball.Velocity.Times(h))
			w.collideStatics(ball)
		}
		w.collideBalls()
	}

	// Air drag is applied once per step so it scales with the tick, not the substep.
	drag := 1 - w.tuning.FrictionAir
	for _, ball := range w.balls {
		ball.force = Vec2{}
		if !ball.Kinematic {
			ball.Velocity = ball.Velocity.Times(drag)
		}
	}

	w.step++
	w.detectSensor()

	if w.rendered && w.sink != nil {
		w.sink.Frame(w.frame())
	}
}

func (w *World) collideStatics(ball *Body) {
	// Only pins in the rows around the ball can be touching it.
	near := int(math.Round((ball.Position.Y - w.board.PaddingTop) / w.board.PinSpacingY))
	for r := near - 1; r <= near+1; r++ {
		if r < 0 || r >= len(w.pinRows) {
			continue
		}
		for _, pin := range w.pinRows[r] {
			if !ball.Filter.CanCollide(pin.Filter) {
				continue
			}
			w.collideCircle(ball, pin.Position, pin.Radius, w.tuning.Restitution)
		}
	}
	for _, wall := range w.walls {
		if !ball.Filter.CanCollide(wall.Filter) {
			continue
		}
		w.collideCircle(ball, wall.segment.ClosestPoint(ball.Position), 0, w.tuning.WallRestitution)
	}
}

// collideCircle resolves overlap between a ball and a static circle at c.
func (w *World) collideCircle(ball *Body, c Vec2, radius, restitution float64) {
	d := ball.Position.Minus(c)
	minDist := ball.Radius + radius
	dist2 := d.MagnitudeSquared()
	if dist2 >= minDist*minDist {
		return
	}

	dist := math.Sqrt(dist2)
	var n Vec2
	if dist < 1e-9 {
		n = Vec2{X: w.rng.Float64() - 0.5, Y: -1}.Normalize()
	} else {
		n = d.Times(1 / dist)
	}
	ball.Position = c.Plus(n.Times(minDist))

	vn := ball.Velocity.Dot(n)
	if vn >= 0 {
		return
	}
	normal := n.Times(vn)
	tangent := ball.Velocity.Minus(normal).Times(1 - w.tuning.ContactFriction)
	ball.Velocity = tangent.Minus(normal.Times(restitution))

	// A ball landing dead on top of a pin would otherwise bounce in place.
	if math.Abs(n.X) < 0.02 && n.Y < 0 {
		ball.Velocity.X += (w.rng.Float64() - 0.5) * balanceJitter
	}
}

func (w *World) collideBalls() {
	for i := 0; i < len(w.balls); i++ {
		a := w.balls[i]
		for j := i + 1; j < len(w.balls); j++ {
			b := w.balls[j]
			if a.Kinematic || b.Kinematic || !a.Filter.CanCollide(b.Filter) {
				continue
			}
			d := a.Position.Minus(b.Position)
			minDist := a.Radius + b.Radius
			dist := d.Magnitude()
			if dist >= minDist || dist == 0 {
				continue
			}
			n := d.Times(1 / dist)
			push := n.Times((minDist - dist) / 2)
			a.Position = a.Position.Plus(push)
			b.Position = b.Position.Minus(push)

			rel := a.Velocity.Minus(b.Velocity).Dot(n)
			if rel >= 0 {
				continue
			}
			impulse := n.Times(-(1 + w.tuning.Restitution) * rel / 2)
			a.Velocity = a.Velocity.Plus(impulse)
			b.Velocity = b.Velocity.Minus(impulse)
		}
	}
}

func (w *World) detectSensor() {
	if w.sensor == nil {
		return
	}
	for _, ball := range w.Balls() {
		if ball.removed || ball.Kinematic || !ball.Filter.CanCollide(w.sensor.Filter) {
			continue
		}
		touching := w.sensor.rect.OverlapsCircle(ball.Position, ball.Radius)
		was := w.touches[ball.ID]
		w.touches[ball.ID] = touching
		if touching && !was {
			for _, h := range w.sensorHandlers {
				h(ball, w.step)
			}
		}
	}
}

func (w *World) frame() Frame {
	f := Frame{Step: w.step, Balls: make([]BallFrame, 0, len(w.balls))}
	for _, b := range w.balls {
		f.Balls = append(f.Balls, BallFrame{ID: b.ID, X: b.Position.X, Y: b.Position.Y})
	}
	return f
}
