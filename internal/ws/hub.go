package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Lyon85/321-Golf/internal/config"
	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/store"
	"github.com/Lyon85/321-Golf/internal/world"
)

const codeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var ErrHubStopped = errors.New("ws: hub stopped")

type frame struct {
	client *Client
	data   []byte
}

// Hub owns every room on this relay instance. All room state is touched only
// by the goroutine running Run; pumps and API handlers talk to it through
// channels.
type Hub struct {
	// Verify resolves a lobby token to an identity. Optional.
	Verify func(token string) (string, error)

	cfg *config.Config
	rdb *redis.Client
	rec store.Recorder
	rng *rand.Rand
	now func() time.Time

	rooms   map[string]*Room
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	inbound    chan frame
	calls      chan func()
	stopped    chan struct{}
}

// NewHub creates a hub. rdb and rec may be nil: identities are then only
// checked locally and nothing is recorded.
func NewHub(cfg *config.Config, rdb *redis.Client, rec store.Recorder) *Hub {
	return &Hub{
		cfg:        cfg,
		rdb:        rdb,
		rec:        rec,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
		rooms:      make(map[string]*Room),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan frame, 1024),
		calls:      make(chan func()),
		stopped:    make(chan struct{}),
	}
}

// Run is the hub loop. Without redis it also expires idle rooms itself.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	poll := h.cfg.IdleWorkerPoll
	if poll <= 0 {
		poll = 15 * time.Second
	}
	sweep := time.NewTicker(poll)
	defer sweep.Stop()

	log.Printf("[WS] relay hub started")
	for {
		select {
		case <-ctx.Done():
			for _, r := range h.rooms {
				h.closeRoom(r, "shutdown")
			}
			log.Printf("[WS] relay hub stopped")
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			h.disconnect(c)
		case f := <-h.inbound:
			h.handleFrame(f.client, f.data)
		case fn := <-h.calls:
			fn()
		case <-sweep.C:
			if h.rdb == nil {
				h.expireIdle(h.now())
			}
		}
	}
}

// do runs fn on the hub goroutine and waits for it.
func (h *Hub) do(fn func()) error {
	done := make(chan struct{})
	select {
	case h.calls <- func() { fn(); close(done) }:
	case <-h.stopped:
		return ErrHubStopped
	}
	<-done
	return nil
}

// Rooms lists the live rooms on this instance.
func (h *Hub) Rooms() ([]RoomInfo, error) {
	var out []RoomInfo
	err := h.do(func() {
		for _, r := range h.rooms {
			out = append(out, r.info())
		}
	})
	if err != nil {
		log.Printf("[WS] list rooms: %v", err)
		return nil, err
	}
	return out, nil
}

// Room looks up one live room.
func (h *Hub) Room(code string) (RoomInfo, bool, error) {
	var info RoomInfo
	var ok bool
	err := h.do(func() {
		if r, found := h.rooms[code]; found {
			info, ok = r.info(), true
		}
	})
	if err != nil {
		log.Printf("[WS] lookup %s: %v", code, err)
		return RoomInfo{}, false, err
	}
	return info, ok, nil
}

// CloseRoom closes code here and tells other instances to do the same.
func (h *Hub) CloseRoom(code, reason string) (bool, error) {
	var ok bool
	err := h.do(func() {
		if r, found := h.rooms[code]; found {
			h.closeRoom(r, reason)
			ok = true
		}
	})
	if err != nil {
		log.Printf("[WS] close %s: %v", code, err)
	}
	h.publish(RoomEvent{Type: EventRoomClosed, RoomID: code, Reason: reason})
	return ok, err
}

// Connected is the number of open relay connections.
func (h *Hub) Connected() (int, error) {
	var n int
	if err := h.do(func() { n = len(h.clients) }); err != nil {
		log.Printf("[WS] count connections: %v", err)
		return 0, err
	}
	return n, nil
}

func (h *Hub) handleFrame(c *Client, data []byte) {
	if c.closed {
		return
	}
	env, err := protocol.Unmarshal(data)
	if err != nil {
		log.Printf("[WS] bad frame from %s: %v", c.label(), err)
		return
	}
	msg, err := protocol.Decode(env)
	if err != nil {
		log.Printf("[WS] dropping %s from %s: %v", env.Type, c.label(), err)
		return
	}

	if c.room == nil {
		h.handleLobby(c, msg)
		return
	}
	c.room.lastActive = h.now()
	h.touch(c.room)
	h.route(c, env, msg)
}

func (h *Hub) handleLobby(c *Client, msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.HostRoom:
		h.hostRoom(c, protocol.NormalizeRoomID(m.RoomID), m.Token)
	case protocol.CreateRoom:
		h.hostRoom(c, "", "")
	case protocol.JoinRoom:
		h.joinRoom(c, protocol.NormalizeRoomID(m.RoomID))
	default:
		c.sendMsg(protocol.ErrorMsg{Reason: "not in a room"})
	}
}

func (h *Hub) generateCode() string {
	for {
		b := make([]byte, 4)
		for i := range b {
			b[i] = codeChars[h.rng.Intn(len(codeChars))]
		}
		code := string(b)
		if _, taken := h.rooms[code]; !taken {
			return code
		}
	}
}

func (h *Hub) hostRoom(c *Client, id, token string) {
	if c.identity == "" && token != "" {
		if ident, err := h.verifyToken(token); err == nil {
			c.identity = ident
		}
	}
	if id == "" {
		id = h.generateCode()
	}
	if _, taken := h.rooms[id]; taken || !h.claimIdentity(id) {
		log.Printf("[ROOM] %s already hosted, refusing %s", id, c.label())
		c.sendMsg(protocol.IDTaken{RoomID: id})
		return
	}

	now := h.now()
	r := newRoom(id, h.cfg, h.rng, now)
	r.HostIdentity = c.identity
	r.host = c
	c.room, c.slot = r, 0
	h.rooms[id] = r

	c.sendMsg(protocol.Joined{RoomID: id, Role: protocol.RoleHost, Slot: 0})
	c.sendMsg(protocol.AssignPlayer{Index: 0})
	c.sendMsg(protocol.RoomCreated{RoomID: id})
	c.sendMsg(protocol.CurrentClubs{Items: r.items.Available()})

	log.Printf("[ROOM] %s opened by %s (%d clubs)", id, c.label(), r.items.Len())
	h.record(func(ctx context.Context, rec store.Recorder) error {
		return rec.RoomOpened(ctx, id, r.HostIdentity, now)
	})
	h.saveRoomState(r)
	h.touch(r)
}

func (h *Hub) joinRoom(c *Client, id string) {
	r, ok := h.rooms[id]
	if !ok {
		c.sendMsg(protocol.ErrorMsg{Reason: "Room not found"})
		return
	}
	slot := r.freeSlot()
	if len(r.guests) >= h.cfg.RoomMaxGuests || slot == protocol.NoSlot {
		c.sendMsg(protocol.RoomFull{RoomID: id})
		return
	}

	r.guests[slot] = c
	r.inventories[slot] = world.Inventory{}
	c.room, c.slot = r, slot

	c.sendMsg(protocol.Joined{RoomID: id, Role: protocol.RoleGuest, Slot: slot})
	c.sendMsg(protocol.AssignPlayer{Index: slot})
	c.sendMsg(protocol.CurrentClubs{Items: r.items.Available()})
	c.sendMsg(r.worldState())

	env := protocol.MustEncode(protocol.ParticipantJoined{Index: slot})
	env.From = slot
	r.host.deliver(env)

	log.Printf("[ROOM] %s joined %s as player %d", c.label(), id, slot)
	h.saveRoomState(r)
}

// route applies the fan-out rules for a client already in a room.
func (h *Hub) route(c *Client, env protocol.Envelope, msg protocol.Message) {
	r := c.room
	isHost := c == r.host
	env.From = c.slot

	switch m := msg.(type) {
	case protocol.StateUpdate, protocol.CartOccupancy:
		if isHost {
			r.toGuests(env)
		}

	case protocol.WorldState:
		if !isHost {
			return
		}
		// The relay owns the club table; the host's copy may lag behind it.
		m.Items = r.items.Available()
		out := protocol.MustEncode(m)
		out.From = c.slot
		r.toGuests(out)

	case protocol.StartGame:
		if !isHost {
			return
		}
		if !r.holes.RoundOver() {
			r.toGuests(env)
			return
		}
		r.newRound(h.cfg, h.rng)
		r.toGuests(env)
		clubs := protocol.CurrentClubs{Items: r.items.Available()}
		for _, mem := range r.members() {
			mem.sendMsg(clubs)
		}
		log.Printf("[ROOM] %s new round (%d clubs)", r.ID, len(clubs.Items))
		h.saveRoomState(r)

	case protocol.HoleUpdate:
		if !isHost {
			return
		}
		r.holes.SetPos(geom.V(m.X, m.Y))
		r.toGuests(env)

	case protocol.CartUpdate:
		if isHost {
			r.toGuests(env)
		} else {
			r.host.deliver(env)
		}

	case protocol.Input, protocol.GuestJoined:
		if !isHost {
			r.host.deliver(env)
		}

	case protocol.PlayerInput:
		if !isHost {
			r.host.deliver(env)
		}
		moved := protocol.MustEncode(protocol.PlayerMoved{PlayerIndex: c.slot, Pose: m.Pose})
		moved.From = c.slot
		for _, g := range r.guests {
			if g != c {
				g.deliver(moved)
			}
		}

	case protocol.RequestPickup:
		h.resolvePickup(r, c.slot, m)

	case protocol.RequestSwap:
		h.resolveSwap(r, c.slot, m)

	case protocol.HoleSunk:
		player := c.slot
		if isHost {
			player = m.PlayerIndex
		}
		h.resolveSunk(r, player, m.Index)

	case protocol.RequestNewHole:
		r.host.sendMsg(protocol.ForceSpawnHole{})

	case protocol.SetSpawnPoint:
		if !isHost {
			return
		}
		r.spawn = geom.V(m.X, m.Y)
		out := protocol.MustEncode(protocol.SpawnPointUpdate{X: m.X, Y: m.Y})
		out.From = c.slot
		r.broadcast(out, nil)

	default:
		log.Printf("[WS] %s sent %s, not relayed", c.label(), env.Type)
	}
}

// resolvePickup honors the first request for an item; later ones are
// dropped silently.
func (h *Hub) resolvePickup(r *Room, slot int, req protocol.RequestPickup) {
	if r.inventories[slot].Full() {
		return
	}
	res, ok := r.items.ResolvePickup(req.ItemID, slot)
	if !ok {
		return
	}
	if err := r.inventories[slot].Apply(res.Taken); err != nil {
		log.Printf("[ROOM] %s pickup %d by %d: %v", r.ID, req.ItemID, slot, err)
	}
	r.broadcast(protocol.MustEncode(res.Taken), nil)
	h.recordClaim(r, res.Taken)
}

func (h *Hub) resolveSwap(r *Room, slot int, req protocol.RequestSwap) {
	if r.inventories[slot].Slots[req.Slot].Name != req.DroppedName {
		return
	}
	res, ok := r.items.ResolveSwap(req.ItemID, slot, req.Slot, req.DroppedName, geom.V(req.X, req.Y))
	if !ok {
		return
	}
	if err := r.inventories[slot].Apply(res.Taken); err != nil {
		log.Printf("[ROOM] %s swap %d by %d: %v", r.ID, req.ItemID, slot, err)
	}
	r.broadcast(protocol.MustEncode(res.Taken), nil)
	if res.Spawned != nil {
		r.broadcast(protocol.MustEncode(protocol.ClubSpawned{Item: *res.Spawned}), nil)
	}
	h.recordClaim(r, res.Taken)
}

// resolveSunk advances the hole once per index. Duplicate and stale reports
// are no-ops.
func (h *Hub) resolveSunk(r *Room, player, reported int) {
	idx, ok := r.holes.ReportSunk(reported)
	if !ok {
		return
	}
	env := protocol.MustEncode(protocol.HoleSunk{Index: idx, PlayerIndex: player})
	env.From = player
	r.broadcast(env, nil)
	if !r.holes.RoundOver() {
		r.host.sendMsg(protocol.ForceSpawnHole{})
	} else {
		log.Printf("[ROOM] %s round over", r.ID)
	}

	at := h.now()
	h.record(func(ctx context.Context, rec store.Recorder) error {
		return rec.HoleSunk(ctx, r.ID, reported, player, at)
	})
	h.saveRoomState(r)
}

func (h *Hub) recordClaim(r *Room, ct protocol.ClubTaken) {
	at := h.now()
	h.record(func(ctx context.Context, rec store.Recorder) error {
		return rec.ItemClaimed(ctx, r.ID, ct.ItemID, ct.ItemType.Name, ct.PlayerIndex, ct.Swap, at)
	})
}

// disconnect handles a closed connection: a host takes its room down, a
// guest frees its slot.
func (h *Hub) disconnect(c *Client) {
	delete(h.clients, c)
	r := c.room
	switch {
	case r == nil:
	case c == r.host:
		r.host = nil
		h.closeRoom(r, "host left")
	default:
		delete(r.guests, c.slot)
		r.inventories[c.slot] = world.Inventory{}
		if r.host != nil {
			env := protocol.MustEncode(protocol.ParticipantLeft{Index: c.slot})
			env.From = c.slot
			r.host.deliver(env)
		}
		log.Printf("[ROOM] player %d left %s", c.slot, r.ID)
		h.saveRoomState(r)
	}
	c.room = nil
	h.closeClient(c)
}

// closeRoom removes r, tells every guest the host is gone and closes their
// connections so they re-host.
func (h *Hub) closeRoom(r *Room, reason string) {
	if cur, ok := h.rooms[r.ID]; !ok || cur != r {
		return
	}
	delete(h.rooms, r.ID)
	for _, g := range r.guests {
		g.sendMsg(protocol.HostDisconnected{})
		g.room = nil
		h.closeClient(g)
	}
	r.guests = map[int]*Client{}
	if r.host != nil {
		r.host.room = nil
		h.closeClient(r.host)
		r.host = nil
	}

	log.Printf("[ROOM] %s closed (%s)", r.ID, reason)
	h.releaseIdentity(r.ID)
	at := h.now()
	h.record(func(ctx context.Context, rec store.Recorder) error {
		return rec.RoomClosed(ctx, r.ID, reason, at)
	})
}

func (h *Hub) closeClient(c *Client) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// expireIdle closes rooms nobody has sent anything to for RoomIdleTimeout.
func (h *Hub) expireIdle(now time.Time) {
	if h.cfg.RoomIdleTimeout <= 0 {
		return
	}
	for _, r := range h.rooms {
		if now.Sub(r.lastActive) >= h.cfg.RoomIdleTimeout {
			h.closeRoom(r, "idle")
		}
	}
}

// record runs a history write off the hub goroutine. Failures are logged.
func (h *Hub) record(fn func(ctx context.Context, rec store.Recorder) error) {
	if h.rec == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx, h.rec); err != nil {
			log.Printf("[DB] %v", err)
		}
	}()
}

func (h *Hub) verifyToken(token string) (string, error) {
	if h.Verify == nil {
		return "", fmt.Errorf("no token verifier")
	}
	return h.Verify(token)
}
