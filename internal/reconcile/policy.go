// Package reconcile merges host snapshots into a guest's local simulation.
// Each entity class has its own snap-or-interpolate policy; distances exactly
// at a snap threshold interpolate, only strictly greater distances snap.
package reconcile

import (
	"time"

	"github.com/Lyon85/321-Golf/internal/config"
	"github.com/Lyon85/321-Golf/internal/geom"
)

type Policy struct {
	OwnSnapDistance    float64
	RemoteSnapDistance float64
	RemoteSmoothing    float64
	CartSnapDistance   float64
	CartSmoothing      float64
	CartStaleAfter     time.Duration
}

func PolicyFromTuning(t config.Tuning) Policy {
	r := t.Reconcile
	return Policy{
		OwnSnapDistance:    r.OwnSnapDistance,
		RemoteSnapDistance: r.RemoteSnapDistance,
		RemoteSmoothing:    r.RemoteSmoothing,
		CartSnapDistance:   r.CartSnapDistance,
		CartSmoothing:      r.CartSmoothing,
		CartStaleAfter:     t.CartStaleAfter(),
	}
}

// Outcome says what a policy did to an entity.
type Outcome int

const (
	Skipped Outcome = iota
	Kept
	Snapped
	Smoothed
	HardSet
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Kept:
		return "kept"
	case Snapped:
		return "snapped"
	case Smoothed:
		return "smoothed"
	case HardSet:
		return "hard-set"
	case Stale:
		return "stale"
	default:
		return "skipped"
	}
}

// OwnPosition decides the local player's position. Small gaps are left to
// local prediction; only a desync larger than snap is corrected.
func OwnPosition(local, host geom.Vec2, snap float64) (geom.Vec2, Outcome) {
	if local.Dist(host) > snap {
		return host, Snapped
	}
	return local, Kept
}

// Smooth moves cur toward target by factor of the remaining distance, or
// jumps straight there when the gap is larger than snap.
func Smooth(cur, target geom.Vec2, snap, factor float64) (geom.Vec2, Outcome) {
	if cur.Dist(target) > snap {
		return target, Snapped
	}
	return cur.Lerp(target, factor), Smoothed
}
