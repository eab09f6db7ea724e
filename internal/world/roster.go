package world

import (
	"errors"
	"fmt"

	"github.com/Lyon85/321-Golf/internal/protocol"
)

var ErrCartOccupied = errors.New("world: cart occupied")

// Controller says who drives a roster slot.
type Controller int

const (
	Bot Controller = iota
	Local
	RemoteHuman
)

func (c Controller) String() string {
	switch c {
	case Local:
		return "local"
	case RemoteHuman:
		return "remote"
	default:
		return "bot"
	}
}

// Slot is one player position in the fixed roster.
type Slot struct {
	Controller  Controller
	Inventory   Inventory
	DrivingCart int
}

func (s *Slot) Driving() bool { return s.DrivingCart != protocol.NoSlot }

// Roster indexes players and carts by stable integers. Players, their balls
// and carts reference each other only through these indices.
type Roster struct {
	slots     [protocol.MaxSlots]Slot
	occupants []int
	local     int
}

// NewRoster creates a roster where local is this process's slot and every
// other slot is a bot until a human claims it.
func NewRoster(local, carts int) *Roster {
	r := &Roster{local: local, occupants: make([]int, carts)}
	for i := range r.slots {
		r.slots[i].DrivingCart = protocol.NoSlot
	}
	for i := range r.occupants {
		r.occupants[i] = protocol.NoSlot
	}
	if local >= 0 && local < protocol.MaxSlots {
		r.slots[local].Controller = Local
	}
	return r
}

func (r *Roster) LocalSlot() int { return r.local }

// SetLocal moves the local marker, e.g. after assign_player.
func (r *Roster) SetLocal(i int) error {
	if i < 0 || i >= protocol.MaxSlots {
		return fmt.Errorf("slot %d out of range", i)
	}
	if r.local >= 0 && r.local < protocol.MaxSlots && r.slots[r.local].Controller == Local {
		r.slots[r.local].Controller = Bot
	}
	r.local = i
	r.slots[i].Controller = Local
	return nil
}

func (r *Roster) Slot(i int) *Slot {
	if i < 0 || i >= protocol.MaxSlots {
		return nil
	}
	return &r.slots[i]
}

func (r *Roster) Controller(i int) Controller {
	if s := r.Slot(i); s != nil {
		return s.Controller
	}
	return Bot
}

// MarkHuman hands a slot to a remote player, disabling its bot.
func (r *Roster) MarkHuman(i int) {
	if s := r.Slot(i); s != nil && i != r.local {
		s.Controller = RemoteHuman
	}
}

// RevertToBot returns a departed player's slot to the bot and frees any cart
// it was sitting in.
func (r *Roster) RevertToBot(i int) {
	s := r.Slot(i)
	if s == nil || i == r.local {
		return
	}
	s.Controller = Bot
	r.Leave(i)
}

// EmptyBags clears every inventory for a new round.
func (r *Roster) EmptyBags() {
	for i := range r.slots {
		r.slots[i].Inventory = Inventory{}
	}
}

func (r *Roster) Humans() []int {
	var out []int
	for i := range r.slots {
		if r.slots[i].Controller == RemoteHuman {
			out = append(out, i)
		}
	}
	return out
}

func (r *Roster) Carts() int { return len(r.occupants) }

// Occupant returns the slot sitting in cart, or NoSlot.
func (r *Roster) Occupant(cart int) int {
	if cart < 0 || cart >= len(r.occupants) {
		return protocol.NoSlot
	}
	return r.occupants[cart]
}

// Enter seats player in cart.
func (r *Roster) Enter(player, cart int) error {
	s := r.Slot(player)
	if s == nil || cart < 0 || cart >= len(r.occupants) {
		return fmt.Errorf("enter cart %d by %d: out of range", cart, player)
	}
	if occ := r.occupants[cart]; occ != protocol.NoSlot && occ != player {
		return fmt.Errorf("%w: cart %d by %d", ErrCartOccupied, cart, occ)
	}
	r.Leave(player)
	r.occupants[cart] = player
	s.DrivingCart = cart
	return nil
}

// Leave unseats player from whatever cart it drives.
func (r *Roster) Leave(player int) {
	s := r.Slot(player)
	if s == nil || !s.Driving() {
		return
	}
	if c := s.DrivingCart; c < len(r.occupants) && r.occupants[c] == player {
		r.occupants[c] = protocol.NoSlot
	}
	s.DrivingCart = protocol.NoSlot
}

// SetOccupancy applies an announced cart_occupancy.
func (r *Roster) SetOccupancy(cart, player int) {
	if cart < 0 || cart >= len(r.occupants) {
		return
	}
	if player == protocol.NoSlot {
		if occ := r.occupants[cart]; occ != protocol.NoSlot {
			r.Leave(occ)
		}
		return
	}
	if occ := r.occupants[cart]; occ != protocol.NoSlot && occ != player {
		r.Leave(occ)
	}
	_ = r.Enter(player, cart)
}
