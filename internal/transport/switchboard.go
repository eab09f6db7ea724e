package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lyon85/321-Golf/internal/protocol"
)

// Switchboard is an in-process direct-peer broker: one listener per
// identity, guests connect to it by name. The host resolves world
// mutations itself in this mode.
type Switchboard struct {
	mu        sync.Mutex
	maxGuests int
	rooms     map[string]*peerRoom
}

func NewSwitchboard(maxGuests int) *Switchboard {
	if maxGuests < 1 {
		maxGuests = 1
	}
	return &Switchboard{maxGuests: maxGuests, rooms: make(map[string]*peerRoom)}
}

func (s *Switchboard) Relayed() bool { return false }

type peerRoom struct {
	id     string
	host   *peerConn
	guests map[int]*peerConn
}

// peerConn is one end of a direct connection. The host end fans sends out
// to every guest; a guest end sends to the host stamped with its slot.
type peerConn struct {
	endpoint
	sb   *Switchboard
	room *peerRoom
	slot int
}

func (s *Switchboard) Host(ctx context.Context, roomID string) (Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrIdentityTaken, roomID)
	}
	room := &peerRoom{id: roomID, guests: make(map[int]*peerConn)}
	room.host = &peerConn{sb: s, room: room, slot: 0}
	room.host.state = Open
	s.rooms[roomID] = room
	return room.host, nil
}

func (s *Switchboard) Join(ctx context.Context, roomID string) (Transport, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return nil, 0, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if len(room.guests) >= s.maxGuests {
		s.mu.Unlock()
		return nil, 0, fmt.Errorf("%w: %s", ErrRoomFull, roomID)
	}
	slot := 1
	for ; slot < protocol.MaxSlots; slot++ {
		if _, taken := room.guests[slot]; !taken {
			break
		}
	}
	if slot >= protocol.MaxSlots {
		s.mu.Unlock()
		return nil, 0, fmt.Errorf("%w: %s", ErrRoomFull, roomID)
	}
	g := &peerConn{sb: s, room: room, slot: slot}
	g.state = Open
	room.guests[slot] = g
	host := room.host
	s.mu.Unlock()

	g.deliver(protocol.MustEncode(protocol.AssignPlayer{Index: slot}))
	env := protocol.MustEncode(protocol.ParticipantJoined{Index: slot})
	env.From = slot
	host.deliver(env)
	return g, slot, nil
}

func (c *peerConn) isHost() bool { return c.room.host == c }

func (c *peerConn) Send(msg protocol.Message) error {
	env, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if c.State() != Open {
		return ErrClosed
	}
	env.From = c.slot

	c.sb.mu.Lock()
	var targets []*peerConn
	if c.isHost() {
		for _, g := range c.room.guests {
			targets = append(targets, g)
		}
	} else if c.room.host != nil {
		targets = append(targets, c.room.host)
	}
	c.sb.mu.Unlock()

	for _, t := range targets {
		t.deliver(env)
	}
	return nil
}

func (c *peerConn) Close() error {
	c.sb.mu.Lock()
	room := c.room
	var notify []*peerConn
	var leftEnv protocol.Envelope
	if c.isHost() {
		if cur, ok := c.sb.rooms[room.id]; ok && cur == room {
			delete(c.sb.rooms, room.id)
		}
		for _, g := range room.guests {
			notify = append(notify, g)
		}
		room.guests = map[int]*peerConn{}
	} else if _, ok := room.guests[c.slot]; ok {
		delete(room.guests, c.slot)
		notify = append(notify, room.host)
		leftEnv = protocol.MustEncode(protocol.ParticipantLeft{Index: c.slot})
		leftEnv.From = c.slot
	}
	c.sb.mu.Unlock()

	if !c.setClosed(nil) {
		return nil
	}
	for _, peer := range notify {
		if c.isHost() {
			peer.deliver(protocol.MustEncode(protocol.HostDisconnected{}))
			peer.setClosed(fmt.Errorf("%w: host left", ErrClosed))
		} else {
			peer.deliver(leftEnv)
		}
	}
	return nil
}
