package main

import (
	"math"
	"math/rand"
	"time"

	"github.com/Lyon85/321-Golf/internal/client"
	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/physics"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

const (
	reach    = 30.0
	pullBack = 90.0
	// stuckAfter gives up on a ball that never gets within reach, e.g. one
	// resting in a spot the player can't walk to.
	stuckAfter = 20 * time.Second
)

// bot walks to its ball and putts it toward the hole.
type bot struct {
	rng  *rand.Rand
	game *client.GameSession

	keys    protocol.Keys
	pointer protocol.Pointer

	chasing time.Time
}

func newBot(rng *rand.Rand) *bot {
	return &bot{rng: rng}
}

func (b *bot) attach(g *client.GameSession) {
	b.game = g
	b.keys, b.pointer = protocol.Keys{}, protocol.Pointer{}
	b.chasing = time.Time{}
}

func (b *bot) Keys() protocol.Keys       { return b.keys }
func (b *bot) Pointer() protocol.Pointer { return b.pointer }

// think sets the controls for the coming tick.
func (b *bot) think(now time.Time) {
	if b.game == nil || !b.game.MatchActive() {
		b.keys = protocol.Keys{}
		return
	}
	slot := b.game.Roster().LocalSlot()
	phys := b.game.Physics()
	me := phys.Position(physics.Player(slot))
	ball := phys.Position(physics.Ball(slot))
	hole := b.game.Holes().Pos()

	b.keys = protocol.Keys{}

	// A pulled pointer is released on the next tick, which fires the swing.
	if b.pointer.Down {
		b.pointer.Down = false
		return
	}

	if b.chasing.IsZero() {
		b.chasing = now
	}
	if me.Dist(ball) > reach {
		b.keys = walkToward(me, ball)
		b.keys.Shift = me.Dist(ball) > 300
		if now.Sub(b.chasing) > stuckAfter {
			// Wander a little to get unstuck.
			b.keys.A, b.keys.D = b.rng.Intn(2) == 0, b.rng.Intn(2) == 0
			b.chasing = now
		}
		return
	}

	b.chasing = time.Time{}
	aim := hole.Sub(ball)
	if aim.Len() < 1 {
		return
	}
	// Jitter the aim so two bots don't play identical shots.
	jitter := (b.rng.Float64() - 0.5) * 0.2
	pull := pullBack
	if d := aim.Len(); d < 400 {
		pull = pullBack * d / 400
	}
	p := ball.Sub(geom.FromAngle(math.Atan2(aim.Y, aim.X)+jitter, pull))
	b.pointer = protocol.Pointer{X: p.X, Y: p.Y, Down: true}
}

func walkToward(from, to geom.Vec2) protocol.Keys {
	d := to.Sub(from)
	var k protocol.Keys
	if d.X > reach/2 {
		k.D = true
	} else if d.X < -reach/2 {
		k.A = true
	}
	if d.Y > reach/2 {
		k.S = true
	} else if d.Y < -reach/2 {
		k.W = true
	}
	return k
}
