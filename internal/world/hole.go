package world

import (
	"math"
	"math/rand"

	"github.com/Lyon85/321-Golf/internal/geom"
)

// HolesPerRound ends a round once that many holes have been sunk.
const HolesPerRound = 10

const (
	holeMargin      = 50
	holeMinDistance = 500
	holeAttempts    = 100
)

// HoleTracker holds the shared hole counter and the current hole position.
type HoleTracker struct {
	index int
	pos   geom.Vec2
}

func (h *HoleTracker) Index() int         { return h.index }
func (h *HoleTracker) Pos() geom.Vec2     { return h.pos }
func (h *HoleTracker) SetPos(p geom.Vec2) { h.pos = p }
func (h *HoleTracker) RoundOver() bool    { return h.index >= HolesPerRound }

// ReportSunk advances the counter only if reported names the current hole.
// A late duplicate for a hole already counted returns false.
func (h *HoleTracker) ReportSunk(reported int) (int, bool) {
	if reported != h.index || h.RoundOver() {
		return h.index, false
	}
	h.index++
	return h.index, true
}

// Advance adopts an index broadcast by the authority. Indices never regress.
func (h *HoleTracker) Advance(to int) bool {
	if to <= h.index {
		return false
	}
	h.index = to
	return true
}

func (h *HoleTracker) Reset() {
	h.index = 0
	h.pos = geom.Vec2{}
}

// PlaceHole picks a hole position at least max(500, 0.3·w) away from ref.
// blocked, if set, rejects unplayable spots such as water. After the attempt
// budget the last candidate is used as is.
func PlaceHole(ref geom.Vec2, w, h float64, rng *rand.Rand, blocked func(geom.Vec2) bool) geom.Vec2 {
	minDist := math.Max(holeMinDistance, w*0.3)
	var p geom.Vec2
	for i := 0; i < holeAttempts; i++ {
		p = geom.V(
			math.Floor(holeMargin+rng.Float64()*(w-2*holeMargin)),
			math.Floor(holeMargin+rng.Float64()*(h-2*holeMargin)),
		)
		if p.Dist(ref) >= minDist && (blocked == nil || !blocked(p)) {
			break
		}
	}
	return p
}

// PickSpawn chooses the round's spawn point inside the field margins.
func PickSpawn(w, h float64, rng *rand.Rand) geom.Vec2 {
	return geom.V(
		math.Floor(holeMargin+rng.Float64()*(w-2*holeMargin)),
		math.Floor(holeMargin+rng.Float64()*(h-2*holeMargin)),
	)
}
