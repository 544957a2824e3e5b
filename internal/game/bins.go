package game

// LandingSource records which rule classified a ball.
type LandingSource string

const (
	LandingSensor   LandingSource = "sensor"
	LandingFallback LandingSource = "fallback"
	LandingReplay   LandingSource = "replay"
)

// Landing is the classification of one ball into a slot.
type Landing struct {
	BallID BodyID        `json:"ball_id"`
	Slot   int           `json:"slot"`
	X      float64       `json:"x"` // slot center the ball is snapped to
	Y      float64       `json:"y"`
	RawX   float64       `json:"raw_x"`
	Step   int           `json:"step"`
	Source LandingSource `json:"source"`
}

// Classify bins ballX by counting how many slot boundaries lie strictly to
// its left, clamped to a valid slot.
func Classify(ballX float64, lastRowXCoords []float64) int {
	if len(lastRowXCoords) == 0 {
		return 0
	}
	slot := 0
	for _, x := range lastRowXCoords {
		if x < ballX {
			slot++
		}
	}
	return clampInt(slot, 0, len(lastRowXCoords)-1)
}

// BinDetector turns sensor events and position polls into at most one
// Landing per ball.
type BinDetector struct {
	board         *BoardConfig
	fallbackDelay int
	guardSteps    int

	landed     map[BodyID]Landing
	belowSince map[BodyID]int
	suppressed int
}

// NewBinDetector creates a detector. fallbackDelay is how many steps a ball
// may sit past the fallback line before it is classified without a sensor
// event; headless runs pass 0.
func NewBinDetector(board *BoardConfig, fallbackDelay int) *BinDetector {
	if fallbackDelay < 0 {
		fallbackDelay = 0
	}
	return &BinDetector{
		board:         board,
		fallbackDelay: fallbackDelay,
		guardSteps:    HitGuardSteps,
		landed:        make(map[BodyID]Landing),
		belowSince:    make(map[BodyID]int),
	}
}

// SensorHit classifies a ball reported by the world's sensor.
func (d *BinDetector) SensorHit(ball *Body, step int) (Landing, bool) {
	return d.classify(ball, step, LandingSensor)
}

// Poll checks a ball's position after a step and classifies it once it has
// stayed past the fallback line for the configured delay.
func (d *BinDetector) Poll(ball *Body, step int) (Landing, bool) {
	if _, ok := d.landed[ball.ID]; ok {
		return Landing{}, false
	}
	if ball.Position.Y < d.board.FallbackY {
		delete(d.belowSince, ball.ID)
		return Landing{}, false
	}
	since, ok := d.belowSince[ball.ID]
	if !ok {
		since = step
		d.belowSince[ball.ID] = step
	}
	if step-since < d.fallbackDelay {
		return Landing{}, false
	}
	return d.classify(ball, step, LandingFallback)
}

// Complete classifies a replayed ball at the end of its recorded path.
func (d *BinDetector) Complete(ball *Body, step int) (Landing, bool) {
	return d.classify(ball, step, LandingReplay)
}

// Landed returns the landing recorded for a ball, if any.
func (d *BinDetector) Landed(id BodyID) (Landing, bool) {
	l, ok := d.landed[id]
	return l, ok
}

// Suppressed counts duplicate triggers swallowed by the hit guard.
func (d *BinDetector) Suppressed() int { return d.suppressed }

// Forget drops state for a removed ball.
func (d *BinDetector) Forget(id BodyID) {
	delete(d.landed, id)
	delete(d.belowSince, id)
}

func (d *BinDetector) classify(ball *Body, step int, source LandingSource) (Landing, bool) {
	if prev, ok := d.landed[ball.ID]; ok {
		if step-prev.Step <= d.guardSteps {
			d.suppressed++
		}
		return Landing{}, false
	}
	slot := Classify(ball.Position.X, d.board.LastRowXCoords)
	l := Landing{
		BallID: ball.ID,
		Slot:   slot,
		X:      d.board.SlotCenter(slot),
		Y:      ball.Position.Y,
		RawX:   ball.Position.X,
		Step:   step,
		Source: source,
	}
	d.landed[ball.ID] = l
	delete(d.belowSince, ball.ID)
	return l, true
}
