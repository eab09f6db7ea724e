// Package snapshot builds the host's batched per-tick state_update.
package snapshot

import (
	"github.com/Lyon85/321-Golf/internal/authority"
	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/physics"
	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/world"
)

// Builder reads the host's bodies and roster once per tick. Carts go out
// only every CartEvery ticks since a driven cart changes every frame.
type Builder struct {
	Phys      physics.Engine
	Roster    *world.Roster
	Owners    authority.Resolver
	Holes     *world.HoleTracker
	CartEvery int

	heights    physics.Heights
	tick       uint64
	forceCarts bool
}

// CartEvery converts the tick and cart broadcast rates into a tick stride.
func CartEvery(tickHz, cartHz int) int {
	if cartHz <= 0 || cartHz >= tickHz {
		return 1
	}
	return tickHz / cartHz
}

func NewBuilder(phys physics.Engine, roster *world.Roster, owners authority.Resolver, holes *world.HoleTracker, cartEvery int) *Builder {
	if cartEvery < 1 {
		cartEvery = 1
	}
	b := &Builder{Phys: phys, Roster: roster, Owners: owners, Holes: holes, CartEvery: cartEvery, forceCarts: true}
	b.heights, _ = phys.(physics.Heights)
	return b
}

func (b *Builder) entity(id physics.BodyID) protocol.EntitySnapshot {
	return protocol.EntitySnapshot{
		ID:    id.Index,
		Kind:  id.Kind,
		Pos:   b.Phys.Position(id).Quantized(),
		Vel:   b.Phys.Velocity(id).Quantized(),
		Angle: geom.Quantize(b.Phys.Angle(id)),
	}
}

// Build produces the snapshot for this tick.
func (b *Builder) Build(matchActive bool) protocol.StateUpdate {
	b.tick++
	su := protocol.StateUpdate{
		Tick:        b.tick,
		Players:     make([]protocol.PlayerSnapshot, 0, protocol.MaxSlots),
		Balls:       make([]protocol.BallSnapshot, 0, protocol.MaxSlots),
		Hole:        b.Holes.Pos(),
		HoleIndex:   b.Holes.Index(),
		MatchActive: matchActive,
	}

	for i := 0; i < protocol.MaxSlots; i++ {
		slot := b.Roster.Slot(i)
		su.Players = append(su.Players, protocol.PlayerSnapshot{
			EntitySnapshot: b.entity(physics.Player(i)),
			Human:          slot.Controller != world.Bot,
			Driving:        slot.Driving(),
			DrivingCart:    slot.DrivingCart,
			Inventory:      slot.Inventory.Slots,
			ActiveSlot:     slot.Inventory.Active,
		})

		ball := protocol.BallSnapshot{EntitySnapshot: b.entity(physics.Ball(i))}
		if b.heights != nil {
			ball.Height = geom.Quantize(b.heights.Height(physics.Ball(i)))
			ball.InFlight = ball.Height > 0
		}
		su.Balls = append(su.Balls, ball)
	}

	if b.forceCarts || (b.tick-1)%uint64(b.CartEvery) == 0 {
		b.forceCarts = false
		su.Carts = make([]protocol.CartSnapshot, 0, b.Roster.Carts())
		for i := 0; i < b.Roster.Carts(); i++ {
			id := physics.Cart(i)
			su.Carts = append(su.Carts, protocol.CartSnapshot{
				EntitySnapshot: b.entity(id),
				Owner:          b.Owners.Owner(id),
			})
		}
	}
	return su
}

// ForceCarts makes the next Build include carts regardless of throttling.
func (b *Builder) ForceCarts() {
	b.forceCarts = true
}

func (b *Builder) Tick() uint64 { return b.tick }

// WorldState is the full layout sent right after start_game.
func WorldState(items *world.ItemRegistry, spawn geom.Vec2, holes *world.HoleTracker, matchActive bool) protocol.WorldState {
	return protocol.WorldState{
		Items:       items.Available(),
		Spawn:       spawn,
		Hole:        holes.Pos(),
		HoleIndex:   holes.Index(),
		MatchActive: matchActive,
	}
}
