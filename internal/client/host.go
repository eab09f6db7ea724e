package client

import (
	"fmt"
	"time"

	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/physics"
	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/snapshot"
	"github.com/Lyon85/321-Golf/internal/world"
)

var hostHandlers = map[string]handler{
	protocol.TypeParticipantJoined: (*GameSession).onParticipantJoined,
	protocol.TypeParticipantLeft:   (*GameSession).onParticipantLeft,
	protocol.TypeGuestJoined:       (*GameSession).onGuestJoined,
	protocol.TypeInput:             (*GameSession).onInput,
	protocol.TypeCartUpdate:        (*GameSession).onHostCartUpdate,
	protocol.TypeRequestPickup:     (*GameSession).onRequestPickup,
	protocol.TypeRequestSwap:       (*GameSession).onRequestSwap,
	protocol.TypeClubTaken:         (*GameSession).onClubTaken,
	protocol.TypeClubSpawned:       (*GameSession).onClubSpawned,
	protocol.TypeCurrentClubs:      (*GameSession).onCurrentClubs,
	protocol.TypeHoleSunk:          (*GameSession).onHostHoleSunk,
	protocol.TypeForceSpawnHole:    (*GameSession).onPlaceHole,
	protocol.TypeRequestNewHole:    (*GameSession).onPlaceHole,
	protocol.TypeSpawnPointUpdate:  (*GameSession).onSpawnPointUpdate,
	protocol.TypeRoomCreated:       (*GameSession).onRoomCreated,
	protocol.TypeErrorMsg:          (*GameSession).onErrorMsg,
}

// hostTick simulates every player, settles cart authority, detects sinks
// and broadcasts one batched snapshot.
func (g *GameSession) hostTick(now time.Time) {
	in := g.controls()
	enter := in.Keys.E && !g.prevKeys.E
	swap := in.Keys.Q && !g.prevKeys.Q
	g.prevKeys = in.Keys

	g.simulate(g.localSlot(), in, enter)
	for _, i := range g.roster.Humans() {
		g.simulate(i, g.remote.Get(i), g.remote.PressedE(i))
	}
	g.seekClubs(now, swap)
	g.arbiter.Update(g.phys, g.remoteDriver)
	g.step()

	for i := 0; i < protocol.MaxSlots; i++ {
		if g.roster.Controller(i) != world.Bot {
			g.detectSink(i, now)
		}
	}
	if !g.matchActive && !g.roundOverAt.IsZero() && now.Sub(g.roundOverAt) >= RoundRestartDelay {
		g.startRound()
	}
	if len(g.roster.Humans()) > 0 {
		g.send(g.builder.Build(g.matchActive))
	}
}

func (g *GameSession) remoteDriver(cart int) int {
	occ := g.roster.Occupant(cart)
	if occ != protocol.NoSlot && g.roster.Controller(occ) == world.RemoteHuman {
		return occ
	}
	return protocol.NoSlot
}

// startRound lays out a fresh course and announces it. Every round after the
// first starts with empty bags and a new club layout; in relayed rooms the
// relay deals the clubs.
func (g *GameSession) startRound() {
	g.holes.Reset()
	g.reported = make(map[int]bool)
	g.roundOverAt = time.Time{}
	g.spawn = world.PickSpawn(g.width, g.height, g.rng)
	if g.rounds > 0 {
		g.roster.EmptyBags()
		g.items.Clear()
		g.pending = make(map[int]time.Time)
	}
	g.rounds++
	if !g.relayed && g.items.Len() == 0 {
		g.items.Generate(g.nItems, g.width, g.height, g.rng)
	}
	g.placePlayers()
	g.matchActive = true

	g.send(protocol.StartGame{})
	if g.relayed {
		g.send(protocol.SetSpawnPoint{X: g.spawn.X, Y: g.spawn.Y})
	} else {
		g.send(protocol.SpawnPointUpdate{X: g.spawn.X, Y: g.spawn.Y})
	}
	g.placeHole()
	g.send(snapshot.WorldState(g.items, g.spawn, &g.holes, g.matchActive))
	g.setStatus(fmt.Sprintf("Round started in %s", g.sess.RoomID))
}

// placeHole picks the next cup away from the previous one and from clubs
// lying on the grass.
func (g *GameSession) placeHole() {
	ref := g.holes.Pos()
	if ref.IsZero() {
		ref = g.spawn
	}
	pos := world.PlaceHole(ref, g.width, g.height, g.rng, func(p geom.Vec2) bool {
		_, near := g.items.Nearest(p, HoleRadius*2)
		return near
	})
	g.holes.SetPos(pos)
	g.send(protocol.HoleUpdate{X: pos.X, Y: pos.Y})
}

func (g *GameSession) onParticipantJoined(_ protocol.Envelope, msg protocol.Message, _ time.Time) {
	m := msg.(protocol.ParticipantJoined)
	g.roster.MarkHuman(m.Index)
	g.setStatus(fmt.Sprintf("Player %d joined", m.Index))
	if g.matchActive {
		g.send(protocol.StartGame{})
	}
	g.send(snapshot.WorldState(g.items, g.spawn, &g.holes, g.matchActive))
	g.builder.ForceCarts()
	g.send(g.builder.Build(g.matchActive))
}

func (g *GameSession) onGuestJoined(env protocol.Envelope, msg protocol.Message, _ time.Time) {
	m := msg.(protocol.GuestJoined)
	g.roster.MarkHuman(env.From)
	g.logger.Info("guest identified", "slot", env.From, "name", m.Name)
}

func (g *GameSession) onParticipantLeft(_ protocol.Envelope, msg protocol.Message, _ time.Time) {
	m := msg.(protocol.ParticipantLeft)
	cart := protocol.NoSlot
	if s := g.roster.Slot(m.Index); s != nil {
		cart = s.DrivingCart
	}
	g.roster.RevertToBot(m.Index)
	g.arbiter.Release(m.Index)
	g.remote.Clear(m.Index)
	if cart != protocol.NoSlot {
		g.send(protocol.CartOccupancy{CartIndex: cart, PlayerIndex: protocol.NoSlot})
	}
	g.setStatus(fmt.Sprintf("Player %d left, a bot takes over", m.Index))
}

func (g *GameSession) onInput(env protocol.Envelope, msg protocol.Message, _ time.Time) {
	if env.From == g.localSlot() || g.roster.Slot(env.From) == nil {
		return
	}
	if g.roster.Controller(env.From) == world.Bot {
		g.roster.MarkHuman(env.From)
	}
	g.remote.Set(env.From, msg.(protocol.Input))
}

func (g *GameSession) onHostCartUpdate(env protocol.Envelope, msg protocol.Message, _ time.Time) {
	m := msg.(protocol.CartUpdate)
	driver := g.roster.Occupant(m.Index)
	if !g.arbiter.Accept(env.From, m.Index, driver) {
		g.logger.Debug("cart_update rejected", "cart", m.Index, "from", env.From, "owner", g.arbiter.CartOwner(m.Index))
		return
	}
	id := physics.Cart(m.Index)
	g.phys.SetPosition(id, m.Pos())
	g.phys.SetVelocity(id, m.Vel())
	g.phys.SetAngle(id, m.Angle)
	if driver != protocol.NoSlot {
		g.phys.SetPosition(physics.Player(driver), m.Pos())
	}
}

func (g *GameSession) onRequestPickup(env protocol.Envelope, msg protocol.Message, _ time.Time) {
	if g.relayed {
		return
	}
	g.resolvePickup(env.From, msg.(protocol.RequestPickup))
}

func (g *GameSession) onRequestSwap(env protocol.Envelope, msg protocol.Message, _ time.Time) {
	if g.relayed {
		return
	}
	g.resolveSwap(env.From, msg.(protocol.RequestSwap))
}

// resolvePickup is the peer-mode authority for pickups.
func (g *GameSession) resolvePickup(slot int, req protocol.RequestPickup) {
	s := g.roster.Slot(slot)
	if s == nil || s.Inventory.Full() {
		return
	}
	res, ok := g.items.ResolvePickup(req.ItemID, slot)
	if !ok {
		g.logger.Debug("pickup ignored", "item", req.ItemID, "player", slot)
		return
	}
	g.applyTaken(res.Taken)
	g.send(res.Taken)
}

func (g *GameSession) resolveSwap(slot int, req protocol.RequestSwap) {
	s := g.roster.Slot(slot)
	if s == nil || s.Inventory.Slots[req.Slot].Name != req.DroppedName {
		return
	}
	res, ok := g.items.ResolveSwap(req.ItemID, slot, req.Slot, req.DroppedName, geom.V(req.X, req.Y))
	if !ok {
		g.logger.Debug("swap ignored", "item", req.ItemID, "player", slot)
		return
	}
	g.applyTaken(res.Taken)
	g.send(res.Taken)
	if res.Spawned != nil {
		g.send(protocol.ClubSpawned{Item: *res.Spawned})
	}
}

func (g *GameSession) onHostHoleSunk(env protocol.Envelope, msg protocol.Message, now time.Time) {
	m := msg.(protocol.HoleSunk)
	if g.relayed {
		if g.holes.Advance(m.Index) {
			g.holeAdvanced(now)
		}
		return
	}
	m.PlayerIndex = env.From
	g.resolveSunk(m, now)
}

// resolveSunk is the peer-mode authority for hole completion. Reports for a
// hole other than the current one are ignored.
func (g *GameSession) resolveSunk(m protocol.HoleSunk, now time.Time) {
	idx, ok := g.holes.ReportSunk(m.Index)
	if !ok {
		return
	}
	g.send(protocol.HoleSunk{Index: idx, PlayerIndex: m.PlayerIndex})
	g.holeAdvanced(now)
	if !g.holes.RoundOver() {
		g.placeHole()
	}
}

func (g *GameSession) onPlaceHole(protocol.Envelope, protocol.Message, time.Time) {
	if !g.holes.RoundOver() {
		g.placeHole()
	}
}

func (g *GameSession) onRoomCreated(_ protocol.Envelope, msg protocol.Message, _ time.Time) {
	g.setStatus(fmt.Sprintf("Room %s created", msg.(protocol.RoomCreated).RoomID))
}
