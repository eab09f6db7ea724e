package physics

import (
	"math"
	"sync"

	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

const (
	// MinSpeed below which a body is brought to rest.
	MinSpeed = 0.01
	// Gravity pulls airborne balls down, in units per tick squared.
	Gravity = 0.35
	// bounceDamping keeps this fraction of vertical speed on landing.
	bounceDamping = 0.35
)

// AirFriction per kind, as a fraction of velocity lost every tick.
var AirFriction = map[protocol.EntityKind]float64{
	protocol.KindPlayer: 0.1,
	protocol.KindBall:   0.02,
	protocol.KindCart:   0.01,
}

type body struct {
	pos    geom.Vec2
	vel    geom.Vec2
	angle  float64
	height float64
	vz     float64
}

// Kinematic integrates free bodies with air friction and ball arcs. It has no
// collisions. Safe for concurrent use.
type Kinematic struct {
	mu     sync.Mutex
	bodies map[BodyID]*body
}

func NewKinematic() *Kinematic {
	return &Kinematic{bodies: make(map[BodyID]*body)}
}

// Add creates or resets a body.
func (k *Kinematic) Add(id BodyID, pos geom.Vec2) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.bodies[id] = &body{pos: pos}
}

func (k *Kinematic) get(id BodyID) *body {
	b, ok := k.bodies[id]
	if !ok {
		b = &body{}
		k.bodies[id] = b
	}
	return b
}

func (k *Kinematic) Position(id BodyID) geom.Vec2 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.get(id).pos
}

func (k *Kinematic) Velocity(id BodyID) geom.Vec2 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.get(id).vel
}

func (k *Kinematic) Angle(id BodyID) float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.get(id).angle
}

func (k *Kinematic) Height(id BodyID) float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.get(id).height
}

func (k *Kinematic) SetPosition(id BodyID, p geom.Vec2) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.get(id).pos = p
}

func (k *Kinematic) SetVelocity(id BodyID, v geom.Vec2) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.get(id).vel = v
}

func (k *Kinematic) SetAngle(id BodyID, a float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.get(id).angle = geom.WrapAngle(a)
}

func (k *Kinematic) SetHeight(id BodyID, h float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	b := k.get(id)
	b.height = math.Max(0, h)
	if b.height == 0 {
		b.vz = 0
	}
}

// Launch gives a ball horizontal velocity and an upward kick.
func (k *Kinematic) Launch(id BodyID, vel geom.Vec2, lift float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	b := k.get(id)
	b.vel = vel
	b.vz = lift
}

// Step advances every body by one tick.
func (k *Kinematic) Step() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for id, b := range k.bodies {
		b.pos = b.pos.Add(b.vel)

		if b.height > 0 || b.vz > 0 {
			b.height += b.vz
			b.vz -= Gravity
			if b.height <= 0 {
				b.height = 0
				b.vz = -b.vz * bounceDamping
				if b.vz < 1 {
					b.vz = 0
				}
			}
			// No ground friction while airborne.
			continue
		}

		b.vel = b.vel.Scale(1 - AirFriction[id.Kind])
		if b.vel.Len() < MinSpeed {
			b.vel = geom.Vec2{}
		}
	}
}

// Speed is the length of a body's velocity.
func Speed(e Engine, id BodyID) float64 {
	return e.Velocity(id).Len()
}
