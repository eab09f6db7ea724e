package geom

import "math"

// WrapAngle maps an angle in radians into (-Pi, Pi].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// AngleDelta returns the signed shortest rotation from a to b.
func AngleDelta(a, b float64) float64 {
	return WrapAngle(b - a)
}

// LerpAngle rotates a toward b by fraction t along the shortest arc.
// Interpolating 359deg toward 1deg passes through 0deg, never through 180deg.
func LerpAngle(a, b, t float64) float64 {
	return a + AngleDelta(a, b)*t
}
