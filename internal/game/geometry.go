package game

import "math"

// Segment is a static line segment, used for the funnel walls.
type Segment struct {
	A Vec2 `json:"a"`
	B Vec2 `json:"b"`
}

// ClosestPoint returns the point on the segment nearest to p.
func (s Segment) ClosestPoint(p Vec2) Vec2 {
	ab := s.B.Minus(s.A)
	denom := ab.MagnitudeSquared()
	if denom == 0 {
		return s.A
	}
	t := clamp(p.Minus(s.A).Dot(ab)/denom, 0, 1)
	return s.A.Plus(ab.Times(t))
}

// Rect is an axis-aligned rectangle, used for the bottom sensor.
type Rect struct {
	Min Vec2 `json:"min"`
	Max Vec2 `json:"max"`
}

// OverlapsCircle reports whether a circle at center with radius r touches the rectangle.
func (r Rect) OverlapsCircle(center Vec2, radius float64) bool {
	nearest := Vec2{
		X: clamp(center.X, r.Min.X, r.Max.X),
		Y: clamp(center.Y, r.Min.Y, r.Max.Y),
	}
	return nearest.Minus(center).MagnitudeSquared() <= radius*radius
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// findBearing returns the angle in degrees of the vector (dx, dy).
func findBearing(dx, dy float64) float64 {
	return math.Atan2(dy, dx) * 180 / math.Pi
}
