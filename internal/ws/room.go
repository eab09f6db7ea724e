package ws

import (
	"math/rand"
	"sort"
	"time"

	"github.com/Lyon85/321-Golf/internal/config"
	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/world"
)

// Room is the relay's record of one hosted room. It resolves the world
// mutations that a direct-peer host would otherwise resolve itself.
type Room struct {
	ID           string
	HostIdentity string

	host   *Client
	guests map[int]*Client

	items       *world.ItemRegistry
	holes       world.HoleTracker
	spawn       geom.Vec2
	inventories [protocol.MaxSlots]world.Inventory

	createdAt  time.Time
	lastActive time.Time
	lastTouch  time.Time
}

func newRoom(id string, cfg *config.Config, rng *rand.Rand, now time.Time) *Room {
	r := &Room{
		ID:         id,
		guests:     make(map[int]*Client),
		items:      world.NewItemRegistry(),
		createdAt:  now,
		lastActive: now,
	}
	r.items.Generate(cfg.RoomItemCount, cfg.WorldWidth, cfg.WorldHeight, rng)
	return r
}

// newRound resets holes, bags and the club layout once a round is over.
func (r *Room) newRound(cfg *config.Config, rng *rand.Rand) {
	r.holes.Reset()
	r.inventories = [protocol.MaxSlots]world.Inventory{}
	r.items.Clear()
	r.items.Generate(cfg.RoomItemCount, cfg.WorldWidth, cfg.WorldHeight, rng)
}

// freeSlot returns the lowest unused guest slot, or NoSlot.
func (r *Room) freeSlot() int {
	for i := 1; i < protocol.MaxSlots; i++ {
		if _, taken := r.guests[i]; !taken {
			return i
		}
	}
	return protocol.NoSlot
}

func (r *Room) members() []*Client {
	out := make([]*Client, 0, len(r.guests)+1)
	if r.host != nil {
		out = append(out, r.host)
	}
	for _, c := range r.guests {
		out = append(out, c)
	}
	return out
}

func (r *Room) broadcast(env protocol.Envelope, except *Client) {
	for _, c := range r.members() {
		if c != except {
			c.deliver(env)
		}
	}
}

func (r *Room) toGuests(env protocol.Envelope) {
	for _, c := range r.guests {
		c.deliver(env)
	}
}

func (r *Room) worldState() protocol.WorldState {
	return protocol.WorldState{
		Items:       r.items.Available(),
		Spawn:       r.spawn,
		Hole:        r.holes.Pos(),
		HoleIndex:   r.holes.Index(),
		MatchActive: !r.holes.RoundOver(),
	}
}

// RoomInfo is the public view of a live room.
type RoomInfo struct {
	Code       string    `json:"code"`
	Players    int       `json:"players"`
	Guests     []int     `json:"guests"`
	HoleIndex  int       `json:"hole_index"`
	ItemsLeft  int       `json:"items_left"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

func (r *Room) info() RoomInfo {
	guests := make([]int, 0, len(r.guests))
	for slot := range r.guests {
		guests = append(guests, slot)
	}
	sort.Ints(guests)
	players := len(guests)
	if r.host != nil {
		players++
	}
	return RoomInfo{
		Code:       r.ID,
		Players:    players,
		Guests:     guests,
		HoleIndex:  r.holes.Index(),
		ItemsLeft:  len(r.items.Available()),
		CreatedAt:  r.createdAt,
		LastActive: r.lastActive,
	}
}
