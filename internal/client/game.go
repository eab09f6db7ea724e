// Package client runs one process's view of a golf match. All game state is
// owned by a GameSession and mutated only inside Tick; transport callbacks
// just queue messages for the next tick.
package client

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Lyon85/321-Golf/internal/authority"
	"github.com/Lyon85/321-Golf/internal/config"
	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/physics"
	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/reconcile"
	"github.com/Lyon85/321-Golf/internal/session"
	"github.com/Lyon85/321-Golf/internal/snapshot"
	"github.com/Lyon85/321-Golf/internal/world"
)

const (
	// HoleRadius is how close a resting ball must be to drop.
	HoleRadius = 20.0
	// sinkSpeed is the fastest a ball may roll and still drop.
	sinkSpeed = 3.0
	// RoundRestartDelay is the pause between the last hole and a new round.
	RoundRestartDelay = 3 * time.Second
)

// Options configures a GameSession.
type Options struct {
	Tuning    config.Tuning
	Width     float64
	Height    float64
	ItemCount int
	Physics   physics.Engine
	Controls  snapshot.InputSource
	Swing     SwingFunc
	Rand      *rand.Rand
	Logger    *log.Logger
	OnStatus  func(string)
}

type handler func(g *GameSession, env protocol.Envelope, msg protocol.Message, now time.Time)

// GameSession is the explicit replacement for a global game state: one per
// process, discarded and rebuilt on a full reconnect.
type GameSession struct {
	sess    *session.Session
	relayed bool
	tuning  config.Tuning
	width   float64
	height  float64
	nItems  int
	logger  *log.Logger
	rng     *rand.Rand
	swing   SwingFunc
	input   snapshot.InputSource
	onStat  func(string)

	phys        physics.Engine
	roster      *world.Roster
	items       *world.ItemRegistry
	holes       world.HoleTracker
	spawn       geom.Vec2
	matchActive bool
	roundOverAt time.Time
	rounds      int
	started     bool
	tick        uint64
	handlers    map[string]handler

	// local controls, edge detection
	prevKeys    protocol.Keys
	prevPointer [protocol.MaxSlots]protocol.Pointer
	pending     map[int]time.Time
	reported    map[int]bool

	// host only
	arbiter *authority.Arbiter
	builder *snapshot.Builder
	remote  snapshot.RemoteInput

	// guest only
	claims    *authority.Claims
	recon     *reconcile.Engine
	cartEvery int

	mu     sync.Mutex
	inbox  []protocol.Envelope
	down   bool
	reason string
	status string
}

// New wires a GameSession to an open session. relayed says whether a relay
// server resolves world mutations; otherwise the host does.
func New(sess *session.Session, relayed bool, opts Options) *GameSession {
	if opts.Tuning.TickRateHz == 0 {
		opts.Tuning = config.DefaultTuning()
	}
	if opts.Width == 0 {
		opts.Width = 4000
	}
	if opts.Height == 0 {
		opts.Height = 4000
	}
	if opts.Physics == nil {
		opts.Physics = physics.NewKinematic()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Swing == nil {
		opts.Swing = ReleaseSwing
	}
	if opts.OnStatus == nil {
		opts.OnStatus = func(string) {}
	}

	t := opts.Tuning
	carts := t.World.Carts
	g := &GameSession{
		sess:     sess,
		relayed:  relayed,
		tuning:   t,
		width:    opts.Width,
		height:   opts.Height,
		nItems:   opts.ItemCount,
		logger:   opts.Logger,
		rng:      opts.Rand,
		swing:    opts.Swing,
		input:    opts.Controls,
		onStat:   opts.OnStatus,
		phys:     opts.Physics,
		roster:   world.NewRoster(sess.Slot, carts),
		items:    world.NewItemRegistry(),
		pending:  make(map[int]time.Time),
		reported: make(map[int]bool),
	}

	th := authority.ThresholdsFromTuning(t)
	if sess.IsHost() {
		g.arbiter = authority.NewArbiter(sess.Slot, carts, th)
		g.builder = snapshot.NewBuilder(g.phys, g.roster, g.arbiter, &g.holes,
			snapshot.CartEvery(t.TickRateHz, t.Snapshot.CartBroadcastHz))
		g.handlers = hostHandlers
	} else {
		g.claims = authority.NewClaims(sess.Slot, carts, th)
		g.recon = reconcile.New(reconcile.PolicyFromTuning(t), g.phys, sess.Slot, carts)
		g.cartEvery = snapshot.CartEvery(t.TickRateHz, t.Snapshot.CartBroadcastHz)
		g.handlers = guestHandlers
	}
	g.parkCarts()

	sess.Transport.OnMessage(g.enqueue)
	sess.Transport.OnClose(func(err error) {
		if err != nil {
			g.markDown(fmt.Sprintf("Connection lost: %v", err))
			return
		}
		g.markDown("Connection closed")
	})
	return g
}

func (g *GameSession) enqueue(env protocol.Envelope) {
	g.mu.Lock()
	g.inbox = append(g.inbox, env)
	g.mu.Unlock()
}

func (g *GameSession) drain() []protocol.Envelope {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.inbox
	g.inbox = nil
	return out
}

func (g *GameSession) markDown(reason string) {
	g.mu.Lock()
	if g.down {
		g.mu.Unlock()
		return
	}
	g.down = true
	g.reason = reason
	g.mu.Unlock()
	g.setStatus(reason)
}

// Disconnected reports that the session ended and must be replaced.
func (g *GameSession) Disconnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.down
}

func (g *GameSession) setStatus(s string) {
	g.mu.Lock()
	g.status = s
	g.mu.Unlock()
	g.logger.Info(s)
	g.onStat(s)
}

// Status is the lobby label text.
func (g *GameSession) Status() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

func (g *GameSession) Session() *session.Session   { return g.sess }
func (g *GameSession) Roster() *world.Roster       { return g.roster }
func (g *GameSession) Items() *world.ItemRegistry  { return g.items }
func (g *GameSession) Holes() *world.HoleTracker   { return &g.holes }
func (g *GameSession) Spawn() geom.Vec2            { return g.spawn }
func (g *GameSession) MatchActive() bool           { return g.matchActive }
func (g *GameSession) Physics() physics.Engine     { return g.phys }
func (g *GameSession) Claims() *authority.Claims   { return g.claims }
func (g *GameSession) Arbiter() *authority.Arbiter { return g.arbiter }

// Close tears the session down.
func (g *GameSession) Close() error {
	return g.sess.Transport.Close()
}

// Tick drains queued messages, routes each to its handler, then runs one
// step of host or guest work. It never returns an error; anomalies are
// corrected or logged.
func (g *GameSession) Tick(now time.Time) {
	if g.Disconnected() {
		return
	}
	if !g.started {
		g.started = true
		if g.sess.IsHost() {
			g.startRound()
		}
	}
	for _, env := range g.drain() {
		g.dispatch(env, now)
		if g.Disconnected() {
			return
		}
	}
	if g.sess.IsHost() {
		g.hostTick(now)
	} else {
		g.guestTick(now)
	}
	g.tick++
}

func (g *GameSession) dispatch(env protocol.Envelope, now time.Time) {
	h, ok := g.handlers[env.Type]
	if !ok {
		g.logger.Debug("unhandled message", "type", env.Type, "from", env.From)
		return
	}
	msg, err := protocol.Decode(env)
	if err != nil {
		g.logger.Warn("dropping invalid message", "type", env.Type, "from", env.From, "error", err)
		return
	}
	h(g, env, msg, now)
}

func (g *GameSession) send(msg protocol.Message) {
	if err := g.sess.Transport.Send(msg); err != nil {
		g.logger.Debug("send failed", "type", msg.MessageType(), "error", err)
	}
}

func (g *GameSession) localSlot() int { return g.roster.LocalSlot() }

func (g *GameSession) controls() protocol.Input {
	if g.input == nil {
		return protocol.Input{}
	}
	return snapshot.CaptureInput(g.input)
}

// parkCarts lines the carts up beside the clubhouse in the middle of the map.
func (g *GameSession) parkCarts() {
	for i := 0; i < g.roster.Carts(); i++ {
		g.phys.SetPosition(physics.Cart(i), geom.V(g.width/2+200+float64(i)*120, g.height/2+50))
	}
}

func (g *GameSession) placePlayers() {
	for i := 0; i < protocol.MaxSlots; i++ {
		p := g.spawn.Add(geom.V(float64(i)*40-60, 0))
		g.phys.SetPosition(physics.Player(i), p)
		g.phys.SetVelocity(physics.Player(i), geom.Vec2{})
		g.resetBall(i)
	}
}

func (g *GameSession) step() {
	if s, ok := g.phys.(physics.Stepper); ok {
		s.Step()
	}
}

func (g *GameSession) resetBall(i int) {
	id := physics.Ball(i)
	g.phys.SetPosition(id, g.phys.Position(physics.Player(i)).Add(geom.V(0, 20)))
	g.phys.SetVelocity(id, geom.Vec2{})
	if h, ok := g.phys.(physics.Heights); ok {
		h.SetHeight(id, 0)
	}
}

// applyTaken performs a club_taken resolution. This is the only place an
// inventory gains or swaps a club.
func (g *GameSession) applyTaken(ct protocol.ClubTaken) {
	g.items.MarkTaken(ct.ItemID)
	delete(g.pending, ct.ItemID)
	slot := g.roster.Slot(ct.PlayerIndex)
	if slot == nil {
		return
	}
	if err := slot.Inventory.Apply(ct); err != nil {
		g.logger.Warn("club_taken not applicable", "item", ct.ItemID, "player", ct.PlayerIndex, "error", err)
	}
}

func (g *GameSession) holeAdvanced(now time.Time) {
	if g.holes.RoundOver() && g.matchActive {
		g.matchActive = false
		g.roundOverAt = now
		g.setStatus(fmt.Sprintf("Round over! %d holes played", world.HolesPerRound))
	}
}
