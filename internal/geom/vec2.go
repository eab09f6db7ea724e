package geom

import "math"

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quantize rounds to 4 decimal places. Snapshots are quantized before they go
// on the wire so repeated host ticks with sub-micro jitter encode identically.
func Quantize(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return math.Round(n*10000) / 10000
}

func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vec2) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

func (v Vec2) LenSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Dist returns the euclidean distance between two points.
func (v Vec2) Dist(o Vec2) float64 {
	return v.Sub(o).Len()
}

// Lerp moves v toward o by fraction t of the remaining distance.
func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{X: v.X + (o.X-v.X)*t, Y: v.Y + (o.Y-v.Y)*t}
}

func (v Vec2) Normalize() Vec2 {
	m := v.Len()
	if m == 0 {
		return Vec2{}
	}
	return v.Scale(1.0 / m)
}

// Quantized returns v with both components passed through Quantize.
func (v Vec2) Quantized() Vec2 {
	return Vec2{X: Quantize(v.X), Y: Quantize(v.Y)}
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// IsFinite reports whether both components are real numbers.
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// FromAngle returns a vector of length mag pointing along angle (radians).
func FromAngle(angle, mag float64) Vec2 {
	return Vec2{X: math.Cos(angle) * mag, Y: math.Sin(angle) * mag}
}
