package client

import (
	"time"

	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

// Handlers used by both roles.

func (g *GameSession) onClubTaken(_ protocol.Envelope, msg protocol.Message, _ time.Time) {
	g.applyTaken(msg.(protocol.ClubTaken))
}

func (g *GameSession) onClubSpawned(_ protocol.Envelope, msg protocol.Message, _ time.Time) {
	g.items.Insert(msg.(protocol.ClubSpawned).Item)
}

func (g *GameSession) onCurrentClubs(_ protocol.Envelope, msg protocol.Message, _ time.Time) {
	g.items.Load(msg.(protocol.CurrentClubs).Items)
}

func (g *GameSession) onSpawnPointUpdate(_ protocol.Envelope, msg protocol.Message, _ time.Time) {
	m := msg.(protocol.SpawnPointUpdate)
	g.spawn = geom.V(m.X, m.Y)
}

func (g *GameSession) onErrorMsg(_ protocol.Envelope, msg protocol.Message, _ time.Time) {
	g.setStatus("Server error: " + msg.(protocol.ErrorMsg).Reason)
}
