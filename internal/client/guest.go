package client

import (
	"fmt"
	"time"

	"github.com/Lyon85/321-Golf/internal/authority"
	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/physics"
	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/world"
)

var guestHandlers = map[string]handler{
	protocol.TypeAssignPlayer:     (*GameSession).onAssignPlayer,
	protocol.TypeStartGame:        (*GameSession).onStartGame,
	protocol.TypeWorldState:       (*GameSession).onWorldState,
	protocol.TypeCurrentClubs:     (*GameSession).onCurrentClubs,
	protocol.TypeStateUpdate:      (*GameSession).onStateUpdate,
	protocol.TypeClubTaken:        (*GameSession).onClubTaken,
	protocol.TypeClubSpawned:      (*GameSession).onClubSpawned,
	protocol.TypeHoleUpdate:       (*GameSession).onHoleUpdate,
	protocol.TypeHoleSunk:         (*GameSession).onGuestHoleSunk,
	protocol.TypeSpawnPointUpdate: (*GameSession).onSpawnPointUpdate,
	protocol.TypeCartOccupancy:    (*GameSession).onCartOccupancy,
	protocol.TypeCartUpdate:       (*GameSession).onGuestCartUpdate,
	protocol.TypeHostDisconnected: (*GameSession).onHostDisconnected,
	protocol.TypeRoomFull:         (*GameSession).onRoomFull,
	protocol.TypeErrorMsg:         (*GameSession).onErrorMsg,
}

// guestTick forwards raw input, predicts the local player and any carts this
// guest holds, then pulls everything else toward the last host snapshot.
func (g *GameSession) guestTick(now time.Time) {
	in := g.controls()
	swap := in.Keys.Q && !g.prevKeys.Q
	g.prevKeys = in.Keys
	g.send(in)

	local := g.localSlot()
	s := g.roster.Slot(local)
	driving := protocol.NoSlot
	if s != nil {
		driving = s.DrivingCart
	}
	switch {
	case driving != protocol.NoSlot && g.claims.Owns(driving):
		physics.ApplyDrive(g.phys, local, driving, in.Keys)
	case driving == protocol.NoSlot:
		physics.ApplyWalk(g.phys, local, in.Keys)
	}
	g.seekClubs(now, swap)

	g.claims.Update(g.phys, driving)
	g.recon.Step(now, g.claims)
	if g.cartEvery > 0 && g.tick%uint64(g.cartEvery) == 0 {
		for _, c := range g.claims.Owned() {
			g.send(g.cartUpdate(c))
		}
	}
	g.step()
	g.detectSink(local, now)
}

func (g *GameSession) cartUpdate(cart int) protocol.CartUpdate {
	id := physics.Cart(cart)
	p := g.phys.Position(id).Quantized()
	v := g.phys.Velocity(id).Quantized()
	return protocol.CartUpdate{
		Index: cart,
		X:     p.X,
		Y:     p.Y,
		Angle: geom.Quantize(g.phys.Angle(id)),
		VX:    v.X,
		VY:    v.Y,
	}
}

func (g *GameSession) onAssignPlayer(_ protocol.Envelope, msg protocol.Message, _ time.Time) {
	i := msg.(protocol.AssignPlayer).Index
	if err := g.roster.SetLocal(i); err != nil {
		g.logger.Warn("assign_player", "error", err)
		return
	}
	g.sess.Slot = i
	g.recon.SetLocal(i)
	g.claims = authority.NewClaims(i, g.roster.Carts(), authority.ThresholdsFromTuning(g.tuning))
	g.setStatus(fmt.Sprintf("Playing as player %d", i))
}

func (g *GameSession) onStartGame(protocol.Envelope, protocol.Message, time.Time) {
	if g.holes.RoundOver() {
		g.roster.EmptyBags()
		g.pending = make(map[int]time.Time)
	}
	g.holes.Reset()
	g.reported = make(map[int]bool)
	g.matchActive = true
}

func (g *GameSession) onWorldState(_ protocol.Envelope, msg protocol.Message, now time.Time) {
	m := msg.(protocol.WorldState)
	g.items.Load(m.Items)
	g.spawn = m.Spawn
	g.holes.SetPos(m.Hole)
	g.matchActive = m.MatchActive
	if g.holes.Advance(m.HoleIndex) {
		g.holeAdvanced(now)
	}
}

func (g *GameSession) onStateUpdate(_ protocol.Envelope, msg protocol.Message, now time.Time) {
	su := msg.(protocol.StateUpdate)
	local := g.localSlot()
	me := g.roster.Slot(local)
	g.recon.ApplySnapshot(su, now, me != nil && me.Driving())

	for _, p := range su.Players {
		s := g.roster.Slot(p.ID)
		if s == nil {
			continue
		}
		if p.ID != local {
			switch {
			case p.Human:
				g.roster.MarkHuman(p.ID)
			case g.roster.Controller(p.ID) == world.RemoteHuman:
				g.roster.RevertToBot(p.ID)
			}
		}
		switch {
		case p.Driving:
			g.roster.SetOccupancy(p.DrivingCart, p.ID)
		case s.Driving():
			g.roster.Leave(p.ID)
		}
		if err := s.Inventory.Select(p.ActiveSlot); err != nil {
			g.logger.Warn("active slot not applicable", "player", p.ID, "slot", p.ActiveSlot, "error", err)
		}
	}

	driving := protocol.NoSlot
	if me != nil {
		driving = me.DrivingCart
	}
	for _, c := range su.Carts {
		g.claims.Observe(c.ID, c.Owner, driving)
	}

	g.holes.SetPos(su.Hole)
	if g.holes.Advance(su.HoleIndex) {
		g.holeAdvanced(now)
	}
	g.matchActive = su.MatchActive
}

func (g *GameSession) onGuestHoleSunk(_ protocol.Envelope, msg protocol.Message, now time.Time) {
	if g.holes.Advance(msg.(protocol.HoleSunk).Index) {
		g.holeAdvanced(now)
	}
}

func (g *GameSession) onHoleUpdate(_ protocol.Envelope, msg protocol.Message, _ time.Time) {
	m := msg.(protocol.HoleUpdate)
	g.holes.SetPos(geom.V(m.X, m.Y))
}

func (g *GameSession) onCartOccupancy(_ protocol.Envelope, msg protocol.Message, _ time.Time) {
	m := msg.(protocol.CartOccupancy)
	g.roster.SetOccupancy(m.CartIndex, m.PlayerIndex)
}

func (g *GameSession) onGuestCartUpdate(_ protocol.Envelope, msg protocol.Message, now time.Time) {
	m := msg.(protocol.CartUpdate)
	if g.claims.Owns(m.Index) {
		return
	}
	g.recon.ApplyCartUpdate(m, now)
}

func (g *GameSession) onHostDisconnected(protocol.Envelope, protocol.Message, time.Time) {
	g.markDown("Host disconnected")
}

func (g *GameSession) onRoomFull(_ protocol.Envelope, msg protocol.Message, _ time.Time) {
	g.setStatus(fmt.Sprintf("Room %s is full", msg.(protocol.RoomFull).RoomID))
}
