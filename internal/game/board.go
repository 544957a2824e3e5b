package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var ErrUnsupportedRows = errors.New("unsupported row count")

// BoardConfig is the pin field geometry for one row count. It is immutable once built.
type BoardConfig struct {
	Rows          int     `json:"rows"`
	PinRadius     float64 `json:"pin_radius"`
	BallRadius    float64 `json:"ball_radius"`
	PinSpacingX   float64 `json:"pin_spacing_x"`
	PinSpacingY   float64 `json:"pin_spacing_y"`
	PaddingTop    float64 `json:"padding_top"`
	PaddingBottom float64 `json:"padding_bottom"`
	CanvasWidth   float64 `json:"canvas_width"`
	CanvasHeight  float64 `json:"canvas_height"`

	// Pins holds every pin, row by row, left to right.
	Pins [][]Vec2 `json:"pins"`
	// BottomPins is the x of every bottom-row pin (rows + 2 of them).
	BottomPins []float64 `json:"bottom_pins"`
	// LastRowXCoords is the right-hand boundary pin of each slot (rows + 1 entries).
	LastRowXCoords []float64 `json:"last_row_x_coords"`

	LeftWall  Segment `json:"left_wall"`
	RightWall Segment `json:"right_wall"`
	// WallAngle is the funnel angle from vertical, in degrees.
	WallAngle float64 `json:"wall_angle"`

	SpawnY    float64 `json:"spawn_y"`
	Sensor    Rect    `json:"sensor"`
	FallbackY float64 `json:"fallback_y"`
	// CommitY is the last pin row; guided drops stop steering below it.
	CommitY   float64 `json:"commit_y"`
}

// BuildBoard computes the pin field for rows. It is a pure function of rows.
func BuildBoard(rows int) (*BoardConfig, error) {
	if rows < MinRows || rows > MaxRows {
		return nil, fmt.Errorf("%w: %d (supported %d-%d)", ErrUnsupportedRows, rows, MinRows, MaxRows)
	}

	bottomCount := TopRowPins + rows - 1
	spacingX := (CanvasWidth - 2*PaddingSide) / float64(bottomCount-1)
	spacingY := (CanvasHeight - PaddingTop - PaddingBottom) / float64(rows-1)

	// Denser boards need smaller pins to avoid the ball wedging between them.
	pinRadius := math.Max(MinPinRadius, 8-0.3*float64(rows))
	ballRadius := spacingX * BallToSpacing

	b := &BoardConfig{
		Rows:          rows,
		PinRadius:     pinRadius,
		BallRadius:    ballRadius,
		PinSpacingX:   spacingX,
		PinSpacingY:   spacingY,
		PaddingTop:    PaddingTop,
		PaddingBottom: PaddingBottom,
		CanvasWidth:   CanvasWidth,
		CanvasHeight:  CanvasHeight,
		Pins:          make([][]Vec2, rows),
	}

	centerX := CanvasWidth / 2
	for r := 0; r < rows; r++ {
		count := TopRowPins + r
		span := float64(count-1) * spacingX
		startX := centerX - span/2
		y := PaddingTop + float64(r)*spacingY

		row := make([]Vec2, count)
		for i := 0; i < count; i++ {
			row[i] = Vec2{X: startX + float64(i)*spacingX, Y: y}
		}
		b.Pins[r] = row
	}

	top := b.Pins[0]
	bottom := b.Pins[rows-1]
	b.BottomPins = make([]float64, len(bottom))
	for i, p := range bottom {
		b.BottomPins[i] = p.X
	}
	b.LastRowXCoords = append([]float64(nil), b.BottomPins[1:]...)

	b.LeftWall = Segment{A: top[0], B: bottom[0]}
	b.RightWall = Segment{A: top[len(top)-1], B: bottom[len(bottom)-1]}
	b.WallAngle = findBearing(bottom[len(bottom)-1].Y-top[0].Y, top[0].X-bottom[0].X)

	b.SpawnY = math.Max(ballRadius+2, PaddingTop-0.6*spacingY)

	lastY := bottom[0].Y
	sensorTop := lastY + pinRadius + 2*ballRadius
	b.Sensor = Rect{
		Min: Vec2{X: 0, Y: sensorTop},
		Max: Vec2{X: CanvasWidth, Y: sensorTop + SensorHeight},
	}
	b.FallbackY = sensorTop + SensorHeight
	b.CommitY = lastY

	return b, nil
}

// SlotCount is the number of landing bins, always rows + 1.
func (b *BoardConfig) SlotCount() int {
	return b.Rows + 1
}

// SlotCenter returns the x midway between the two bottom pins bounding slot.
func (b *BoardConfig) SlotCenter(slot int) float64 {
	slot = clampInt(slot, 0, b.SlotCount()-1)
	return (b.BottomPins[slot] + b.BottomPins[slot+1]) / 2
}

// TopSpan returns the horizontal range a ball may spawn in.
func (b *BoardConfig) TopSpan() (float64, float64) {
	top := b.Pins[0]
	return top[0].X + b.BallRadius, top[len(top)-1].X - b.BallRadius
}

// CenterX is the board's horizontal midline.
func (b *BoardConfig) CenterX() float64 {
	return b.CanvasWidth / 2
}

// RandomSpawnX picks a uniform x within the top-row span.
func (b *BoardConfig) RandomSpawnX(rng *rand.Rand) float64 {
	lo, hi := b.TopSpan()
	return lo + rng.Float64()*(hi-lo)
}

// Walls returns the funnel walls plus vertical guards above the top row.
func (b *BoardConfig) Walls() []Segment {
	left, right := b.LeftWall, b.RightWall
	return []Segment{
		left,
		right,
		{A: Vec2{X: left.A.X, Y: 0}, B: left.A},
		{A: Vec2{X: right.A.X, Y: 0}, B: right.A},
	}
}
