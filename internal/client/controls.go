package client

import (
	"math"
	"time"

	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/physics"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

const (
	swingReach   = 40.0
	maxPull      = 150.0
	maxShotSpeed = 18.0
)

// SwingFunc turns a pointer transition into a shot for a ball at ball.
type SwingFunc func(prev, cur protocol.Pointer, ball geom.Vec2) (shot geom.Vec2, lift float64, ok bool)

// ReleaseSwing fires when the pointer is released: the ball travels away
// from the pointer, harder the further it was pulled back.
func ReleaseSwing(prev, cur protocol.Pointer, ball geom.Vec2) (geom.Vec2, float64, bool) {
	if !prev.Down || cur.Down {
		return geom.Vec2{}, 0, false
	}
	pull := ball.Sub(geom.V(cur.X, cur.Y))
	d := pull.Len()
	if d < 1 {
		return geom.Vec2{}, 0, false
	}
	power := math.Min(d, maxPull) / maxPull
	return pull.Normalize().Scale(power * maxShotSpeed), power * 4, true
}

type launcher interface {
	Launch(id physics.BodyID, vel geom.Vec2, lift float64)
}

// simulate moves a host-simulated player for one tick from its controls.
func (g *GameSession) simulate(slot int, in protocol.Input, enterPressed bool) {
	s := g.roster.Slot(slot)
	if s == nil {
		return
	}
	active := s.Inventory.Active
	switch {
	case in.Keys.One:
		active = 0
	case in.Keys.Two:
		active = 1
	}
	if err := s.Inventory.Select(active); err != nil {
		g.logger.Warn("select club", "player", slot, "slot", active, "error", err)
	}
	if enterPressed {
		g.toggleCart(slot)
	}
	if s.Driving() {
		g.drive(slot, s.DrivingCart, in.Keys)
	} else {
		physics.ApplyWalk(g.phys, slot, in.Keys)
	}
	g.trySwing(slot, in.Pointer)
}

// drive steers a cart unless a remote guest holds authority over it, in
// which case the driver only rides along with the guest's updates.
func (g *GameSession) drive(slot, cart int, keys protocol.Keys) {
	if g.arbiter != nil && g.arbiter.CartOwner(cart) == slot && slot != g.localSlot() {
		pid := physics.Player(slot)
		g.phys.SetPosition(pid, g.phys.Position(physics.Cart(cart)))
		g.phys.SetVelocity(pid, g.phys.Velocity(physics.Cart(cart)))
		return
	}
	physics.ApplyDrive(g.phys, slot, cart, keys)
}

func (g *GameSession) trySwing(slot int, ptr protocol.Pointer) {
	prev := g.prevPointer[slot]
	g.prevPointer[slot] = ptr
	if s := g.roster.Slot(slot); s == nil || s.Driving() {
		return
	}
	ball := physics.Ball(slot)
	bpos := g.phys.Position(ball)
	if g.phys.Position(physics.Player(slot)).Dist(bpos) > swingReach {
		return
	}
	shot, lift, ok := g.swing(prev, ptr, bpos)
	if !ok {
		return
	}
	if l, ok := g.phys.(launcher); ok {
		l.Launch(ball, shot, lift)
		return
	}
	g.phys.SetVelocity(ball, shot)
}

// toggleCart seats slot in the nearest free cart in reach, or unseats it.
// Only the host decides occupancy.
func (g *GameSession) toggleCart(slot int) {
	s := g.roster.Slot(slot)
	if s.Driving() {
		cart := s.DrivingCart
		g.roster.Leave(slot)
		g.send(protocol.CartOccupancy{CartIndex: cart, PlayerIndex: protocol.NoSlot})
		return
	}
	me := g.phys.Position(physics.Player(slot))
	best, bestDist := protocol.NoSlot, g.tuning.World.CartEnterRadius
	for c := 0; c < g.roster.Carts(); c++ {
		if g.roster.Occupant(c) != protocol.NoSlot {
			continue
		}
		if d := me.Dist(g.phys.Position(physics.Cart(c))); d <= bestDist {
			best, bestDist = c, d
		}
	}
	if best == protocol.NoSlot {
		return
	}
	if err := g.roster.Enter(slot, best); err != nil {
		g.logger.Debug("enter cart", "error", err)
		return
	}
	g.send(protocol.CartOccupancy{CartIndex: best, PlayerIndex: slot})
}

// seekClubs runs pickup and swap detection for the local player. Requests are
// debounced per item; nothing changes until club_taken comes back.
func (g *GameSession) seekClubs(now time.Time, swapPressed bool) {
	slot := g.localSlot()
	s := g.roster.Slot(slot)
	if s == nil || s.Driving() || !g.matchActive {
		return
	}
	me := g.phys.Position(physics.Player(slot))
	it, ok := g.items.Nearest(me, g.tuning.World.PickupRadius)
	if !ok {
		return
	}
	if at, waiting := g.pending[it.ID]; waiting && now.Sub(at) < g.tuning.PickupRetry() {
		return
	}
	switch {
	case !s.Inventory.Full():
		g.pending[it.ID] = now
		g.requestPickup(slot, protocol.RequestPickup{ItemID: it.ID})
	case swapPressed:
		i := s.Inventory.SwapSlot()
		g.pending[it.ID] = now
		g.requestSwap(slot, protocol.RequestSwap{
			ItemID:      it.ID,
			Slot:        i,
			DroppedName: s.Inventory.Slots[i].Name,
			X:           geom.Quantize(me.X),
			Y:           geom.Quantize(me.Y),
		})
	}
}

// requestPickup goes to whoever resolves mutations: the relay, the host, or
// this process when it is the host of a peer room.
func (g *GameSession) requestPickup(slot int, req protocol.RequestPickup) {
	if g.sess.IsHost() && !g.relayed {
		g.resolvePickup(slot, req)
		return
	}
	g.send(req)
}

func (g *GameSession) requestSwap(slot int, req protocol.RequestSwap) {
	if g.sess.IsHost() && !g.relayed {
		g.resolveSwap(slot, req)
		return
	}
	g.send(req)
}

// detectSink reports slot's ball once per hole when it rests in the cup.
func (g *GameSession) detectSink(slot int, now time.Time) {
	if !g.matchActive || g.holes.RoundOver() || g.reported[g.holes.Index()] {
		return
	}
	ball := physics.Ball(slot)
	if h, ok := g.phys.(physics.Heights); ok && h.Height(ball) > 0 {
		return
	}
	if g.phys.Position(ball).Dist(g.holes.Pos()) > HoleRadius || physics.Speed(g.phys, ball) > sinkSpeed {
		return
	}
	idx := g.holes.Index()
	g.reported[idx] = true
	g.logger.Debug("ball sunk", "player", slot, "hole", idx)
	g.resetBall(slot)
	if g.sess.IsHost() && !g.relayed {
		g.resolveSunk(protocol.HoleSunk{Index: idx, PlayerIndex: slot}, now)
		return
	}
	g.send(protocol.HoleSunk{Index: idx, PlayerIndex: slot})
}
