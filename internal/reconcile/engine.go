package reconcile

import (
	"time"

	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/physics"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

// netTarget is the latest host state for a cart plus when it arrived.
type netTarget struct {
	pos   geom.Vec2
	vel   geom.Vec2
	angle float64
	at    time.Time
	valid bool
}

// Ownership tells the engine which carts this client is transmitting.
type Ownership interface {
	Owns(cart int) bool
}

// Engine applies snapshots to a guest's physics bodies.
type Engine struct {
	policy  Policy
	phys    physics.Engine
	heights physics.Heights
	local   int
	targets []netTarget
	seats   []int
}

// New creates a reconciler for the guest in slot local. phys may also
// implement physics.Heights to receive ball heights.
func New(p Policy, phys physics.Engine, local, carts int) *Engine {
	e := &Engine{policy: p, phys: phys, local: local, targets: make([]netTarget, carts), seats: make([]int, carts)}
	e.clearSeats()
	e.heights, _ = phys.(physics.Heights)
	return e
}

func (e *Engine) SetLocal(slot int) { e.local = slot }

// Report is what happened to each entity in one snapshot; useful for
// logging and tests.
type Report struct {
	Players map[int]Outcome
	Balls   map[int]Outcome
}

// ApplySnapshot reconciles players and balls immediately and records cart
// targets for Step. localDriving suppresses own-player correction.
func (e *Engine) ApplySnapshot(su protocol.StateUpdate, now time.Time, localDriving bool) Report {
	rep := Report{Players: make(map[int]Outcome), Balls: make(map[int]Outcome)}

	e.clearSeats()
	for _, p := range su.Players {
		if p.ID == e.local {
			rep.Players[p.ID] = e.ownPlayer(p, localDriving)
		} else {
			rep.Players[p.ID] = e.remotePlayer(p)
		}
	}
	for _, b := range su.Balls {
		e.ball(b)
		rep.Balls[b.ID] = HardSet
	}
	for _, c := range su.Carts {
		if c.ID < 0 || c.ID >= len(e.targets) {
			continue
		}
		e.targets[c.ID] = netTarget{pos: c.Pos, vel: c.Vel, angle: c.Angle, at: now, valid: true}
	}
	return rep
}

func (e *Engine) ownPlayer(p protocol.PlayerSnapshot, driving bool) Outcome {
	if driving {
		return Skipped
	}
	id := physics.Player(p.ID)
	pos, out := OwnPosition(e.phys.Position(id), p.Pos, e.policy.OwnSnapDistance)
	if out == Snapped {
		e.phys.SetPosition(id, pos)
		e.phys.SetVelocity(id, p.Vel)
	}
	return out
}

func (e *Engine) remotePlayer(p protocol.PlayerSnapshot) Outcome {
	id := physics.Player(p.ID)
	if p.Driving && p.DrivingCart >= 0 && p.DrivingCart < len(e.seats) {
		// Rides with its cart; Step carries it along.
		e.seats[p.DrivingCart] = p.ID
		e.phys.SetAngle(id, p.Angle)
		return Skipped
	}
	pos, out := Smooth(e.phys.Position(id), p.Pos, e.policy.RemoteSnapDistance, e.policy.RemoteSmoothing)
	e.phys.SetPosition(id, pos)
	e.phys.SetVelocity(id, p.Vel)
	e.phys.SetAngle(id, p.Angle)
	return out
}

// ball hard-sets every ball. Ball outcomes are single-sourced on the host.
func (e *Engine) ball(b protocol.BallSnapshot) {
	id := physics.Ball(b.ID)
	e.phys.SetPosition(id, b.Pos)
	e.phys.SetVelocity(id, b.Vel)
	if e.heights != nil {
		e.heights.SetHeight(id, b.Height)
	}
}

// Step runs the cart policy once per render tick. Carts this client owns are
// left alone: it is their transmitter, not their receiver.
func (e *Engine) Step(now time.Time, owned Ownership) map[int]Outcome {
	out := make(map[int]Outcome, len(e.targets))
	for i := range e.targets {
		t := &e.targets[i]
		if owned != nil && owned.Owns(i) {
			out[i] = Skipped
			e.seatDriver(i)
			continue
		}
		if !t.valid {
			e.seatDriver(i)
			continue
		}
		if now.Sub(t.at) > e.policy.CartStaleAfter {
			t.valid = false
			out[i] = Stale
			e.seatDriver(i)
			continue
		}
		out[i] = e.moveCart(i, t)
		e.seatDriver(i)
	}
	return out
}

func (e *Engine) moveCart(i int, t *netTarget) Outcome {
	id := physics.Cart(i)
	cur := e.phys.Position(id)
	if cur.Dist(t.pos) > e.policy.CartSnapDistance {
		e.phys.SetPosition(id, t.pos)
		e.phys.SetVelocity(id, t.vel)
		e.phys.SetAngle(id, t.angle)
		return Snapped
	}
	e.phys.SetVelocity(id, t.vel)
	e.phys.SetPosition(id, cur.Lerp(t.pos, e.policy.CartSmoothing))
	e.phys.SetAngle(id, geom.LerpAngle(e.phys.Angle(id), t.angle, e.policy.CartSmoothing))
	return Smoothed
}

// seatDriver puts the remote player seated in cart i on the cart's transform.
func (e *Engine) seatDriver(i int) {
	driver := e.seats[i]
	if driver == protocol.NoSlot || driver == e.local {
		return
	}
	cart, pid := physics.Cart(i), physics.Player(driver)
	e.phys.SetPosition(pid, e.phys.Position(cart))
	e.phys.SetVelocity(pid, e.phys.Velocity(cart))
	e.phys.SetAngle(pid, e.phys.Angle(cart))
}

func (e *Engine) clearSeats() {
	for i := range e.seats {
		e.seats[i] = protocol.NoSlot
	}
}

// ApplyCartUpdate records a cart_update relayed from its owner as a target.
func (e *Engine) ApplyCartUpdate(cu protocol.CartUpdate, now time.Time) {
	if cu.Index < 0 || cu.Index >= len(e.targets) {
		return
	}
	e.targets[cu.Index] = netTarget{pos: cu.Pos(), vel: cu.Vel(), angle: cu.Angle, at: now, valid: true}
}

// Reset forgets all cart targets and seats.
func (e *Engine) Reset() {
	for i := range e.targets {
		e.targets[i] = netTarget{}
	}
	e.clearSeats()
}
