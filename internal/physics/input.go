package physics

import (
	"math"

	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

// Movement speeds in units per tick.
const (
	WalkSpeed   = 3.0
	SprintSpeed = 5.0
	CartAccel   = 0.4
	CartMax     = 12.0
	CartTurn    = 0.05
)

// ApplyWalk sets a player's velocity from its held movement keys.
func ApplyWalk(e Engine, player int, keys protocol.Keys) {
	var dir geom.Vec2
	if keys.W {
		dir.Y--
	}
	if keys.S {
		dir.Y++
	}
	if keys.A {
		dir.X--
	}
	if keys.D {
		dir.X++
	}
	id := Player(player)
	if dir.IsZero() {
		return
	}
	speed := WalkSpeed
	if keys.Shift {
		speed = SprintSpeed
	}
	e.SetVelocity(id, dir.Normalize().Scale(speed))
	e.SetAngle(id, math.Atan2(dir.Y, dir.X))
}

// ApplyDrive steers a cart: W/S throttle along the heading, A/D turn. The
// driver's body rides along with the cart.
func ApplyDrive(e Engine, player, cart int, keys protocol.Keys) {
	id := Cart(cart)
	angle := e.Angle(id)
	vel := e.Velocity(id)
	speed := vel.Len()
	if vel.Dot(geom.FromAngle(angle, 1)) < 0 {
		speed = -speed
	}
	if keys.W {
		speed = math.Min(CartMax, speed+CartAccel)
	}
	if keys.S {
		speed = math.Max(-CartMax/2, speed-CartAccel)
	}
	if speed != 0 {
		turn := CartTurn * math.Min(1, math.Abs(speed)/CartMax*2)
		if keys.A {
			angle -= turn
		}
		if keys.D {
			angle += turn
		}
	}
	e.SetAngle(id, angle)
	e.SetVelocity(id, geom.FromAngle(angle, speed))

	pid := Player(player)
	e.SetPosition(pid, e.Position(id))
	e.SetVelocity(pid, e.Velocity(id))
	e.SetAngle(pid, angle)
}
