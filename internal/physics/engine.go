// Package physics is the boundary to the simulation engine. The netcode only
// reads and writes position, velocity and angle per body; Kinematic is a
// small reference engine used by the headless client and tests.
package physics

import (
	"fmt"

	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

// BodyID names a body by kind and roster index.
type BodyID struct {
	Kind  protocol.EntityKind
	Index int
}

func (b BodyID) String() string { return fmt.Sprintf("%s#%d", b.Kind, b.Index) }

func Player(i int) BodyID { return BodyID{Kind: protocol.KindPlayer, Index: i} }
func Ball(i int) BodyID   { return BodyID{Kind: protocol.KindBall, Index: i} }
func Cart(i int) BodyID   { return BodyID{Kind: protocol.KindCart, Index: i} }

// Engine is what the netcode needs from a physics implementation.
type Engine interface {
	Position(id BodyID) geom.Vec2
	Velocity(id BodyID) geom.Vec2
	Angle(id BodyID) float64
	SetPosition(id BodyID, p geom.Vec2)
	SetVelocity(id BodyID, v geom.Vec2)
	SetAngle(id BodyID, a float64)
}

// Heights is implemented by engines that model ball flight.
type Heights interface {
	Height(id BodyID) float64
	SetHeight(id BodyID, h float64)
}

// Stepper advances the simulation by one fixed tick.
type Stepper interface {
	Step()
}
