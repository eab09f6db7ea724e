package client

import (
	"context"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/physics"
	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/session"
	"github.com/Lyon85/321-Golf/internal/transport"
	"github.com/Lyon85/321-Golf/internal/world"
)

const roomID = "GOLF-AB12"

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func testOptions(seed int64) Options {
	return Options{
		ItemCount: 1,
		Physics:   physics.NewKinematic(),
		Rand:      rand.New(rand.NewSource(seed)),
		Logger:    quietLogger(),
	}
}

type pair struct {
	sb    *transport.Switchboard
	host  *GameSession
	guest *GameSession
	gm    *session.Manager
	now   time.Time
}

// newPair starts a peer-mode host, lets it lay out a round, then joins a
// guest and exchanges one round of messages.
func newPair(t *testing.T) *pair {
	t.Helper()
	return newPairWithClubs(t, 1)
}

func newPairWithClubs(t *testing.T, clubs int) *pair {
	t.Helper()
	ctx := context.Background()
	p := &pair{sb: transport.NewSwitchboard(3), now: time.Unix(1000, 0)}

	hs, err := session.NewManager(p.sb, roomID, time.Second, quietLogger()).Start(ctx)
	if err != nil {
		t.Fatalf("host Start: %v", err)
	}
	opts := testOptions(1)
	opts.ItemCount = clubs
	p.host = New(hs, false, opts)
	p.host.Tick(p.now)

	p.gm = session.NewManager(p.sb, roomID, time.Second, quietLogger())
	gs, err := p.gm.Start(ctx)
	if err != nil {
		t.Fatalf("guest Start: %v", err)
	}
	if gs.IsHost() {
		t.Fatalf("second process should join, got %+v", gs)
	}
	p.guest = New(gs, false, testOptions(2))
	p.step()
	return p
}

func (p *pair) step() {
	p.now = p.now.Add(16 * time.Millisecond)
	p.host.Tick(p.now)
	p.guest.Tick(p.now)
}

func TestGuestReceivesWorld(t *testing.T) {
	p := newPair(t)

	if got := p.host.Roster().Controller(1); got != world.RemoteHuman {
		t.Errorf("host sees slot 1 as %v", got)
	}
	if got := p.guest.Roster().LocalSlot(); got != 1 {
		t.Errorf("guest local slot = %d", got)
	}
	if !p.guest.MatchActive() {
		t.Error("guest match not active")
	}
	if p.guest.Items().Len() != 1 {
		t.Errorf("guest has %d items, want 1", p.guest.Items().Len())
	}
	if d := p.guest.Holes().Pos().Dist(p.host.Holes().Pos()); d > 1e-6 {
		t.Errorf("hole differs by %v", d)
	}
	if p.guest.Spawn() != p.host.Spawn() {
		t.Errorf("spawn %v, host %v", p.guest.Spawn(), p.host.Spawn())
	}
}

func TestPeerPickupResolvedOnce(t *testing.T) {
	p := newPair(t)
	items := p.guest.Items().Available()
	if len(items) != 1 {
		t.Fatalf("available = %v", items)
	}
	it := items[0]

	// Both players stand on the club; the guest's request reaches the host
	// before the host's own detection runs.
	p.guest.Physics().SetPosition(physics.Player(1), it.Pos)
	p.host.Physics().SetPosition(physics.Player(0), it.Pos)
	p.guest.Tick(p.now)
	p.host.Tick(p.now)
	p.guest.Tick(p.now)

	hostInv := p.host.Roster().Slot(1).Inventory
	if hostInv.Slots[0] != it.Type {
		t.Errorf("host inventory for guest = %+v, want %v", hostInv.Slots, it.Type)
	}
	if !p.host.Roster().Slot(0).Inventory.Empty(0) {
		t.Errorf("host player also got a club: %+v", p.host.Roster().Slot(0).Inventory.Slots)
	}
	if guestInv := p.guest.Roster().Slot(1).Inventory; guestInv.Slots != hostInv.Slots {
		t.Errorf("guest inventory %+v, host %+v", guestInv.Slots, hostInv.Slots)
	}
	if len(p.host.Items().Available()) != 0 || len(p.guest.Items().Available()) != 0 {
		t.Error("taken club still available")
	}
}

func TestGuestClaimsMovingCart(t *testing.T) {
	p := newPair(t)
	cart := physics.Cart(0)
	pos := p.guest.Physics().Position(cart)

	p.guest.Physics().SetPosition(physics.Player(1), pos.Add(geom.V(10, 0)))
	p.guest.Physics().SetVelocity(cart, geom.V(5, 0))
	p.guest.Tick(p.now)
	p.guest.Tick(p.now)
	if !p.guest.Claims().Owns(0) {
		t.Fatal("guest did not claim the cart it pushed")
	}

	p.host.Tick(p.now)
	if got := p.host.Arbiter().CartOwner(0); got != 1 {
		t.Errorf("host cart owner = %d, want 1", got)
	}
	if v := p.host.Physics().Velocity(cart); v.X <= 0 {
		t.Errorf("host cart velocity %v", v)
	}

	p.guest.Tick(p.now)
	if !p.guest.Claims().Owns(0) {
		t.Error("claim dropped after host confirmed it")
	}
}

func TestParticipantLeftRevertsToBot(t *testing.T) {
	p := newPair(t)
	if err := p.host.Roster().Enter(1, 0); err != nil {
		t.Fatalf("Enter: %v", err)
	}

	if err := p.guest.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	p.host.Tick(p.now)

	if got := p.host.Roster().Controller(1); got != world.Bot {
		t.Errorf("slot 1 controller = %v, want bot", got)
	}
	if occ := p.host.Roster().Occupant(0); occ != protocol.NoSlot {
		t.Errorf("cart still occupied by %d", occ)
	}
	if p.host.Disconnected() {
		t.Error("host should survive a guest leaving")
	}
}

func TestHostLeavingTriggersRehost(t *testing.T) {
	p := newPair(t)
	if err := p.host.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	p.guest.Tick(p.now)
	if !p.guest.Disconnected() {
		t.Fatal("guest did not notice the host leaving")
	}

	sess, err := p.gm.Rehost(context.Background(), p.guest.Session())
	if err != nil {
		t.Fatalf("Rehost: %v", err)
	}
	if !sess.IsHost() || sess.RoomID != roomID {
		t.Errorf("rehosted session = %+v", sess)
	}
	next := New(sess, false, testOptions(3))
	next.Tick(p.now)
	if !next.MatchActive() {
		t.Error("new host did not start a round")
	}
}

func TestPeerHoleSunkAdvancesOnce(t *testing.T) {
	p := newPair(t)
	hole := p.host.Holes().Pos()

	// Both clients see the guest's ball resting in the cup.
	p.host.Physics().SetPosition(physics.Ball(1), hole)
	p.guest.Physics().SetPosition(physics.Ball(1), hole)
	p.guest.Tick(p.now)
	p.host.Tick(p.now)
	p.guest.Tick(p.now)

	if got := p.host.Holes().Index(); got != 1 {
		t.Errorf("host hole index = %d, want 1", got)
	}
	if got := p.guest.Holes().Index(); got != 1 {
		t.Errorf("guest hole index = %d, want 1", got)
	}
	if p.host.Holes().Pos() == hole {
		t.Error("hole was not moved")
	}
}

func TestReleaseSwing(t *testing.T) {
	ball := geom.V(100, 100)
	if _, _, ok := ReleaseSwing(protocol.Pointer{X: 50, Y: 100, Down: true}, protocol.Pointer{X: 50, Y: 100, Down: true}, ball); ok {
		t.Error("held pointer should not swing")
	}
	shot, lift, ok := ReleaseSwing(protocol.Pointer{Down: true}, protocol.Pointer{X: 50, Y: 100}, ball)
	if !ok {
		t.Fatal("release did not swing")
	}
	if shot.X <= 0 || shot.Y != 0 || lift <= 0 {
		t.Errorf("shot %v lift %v", shot, lift)
	}
}

func TestNewRoundDealsFreshLayout(t *testing.T) {
	p := newPairWithClubs(t, 4)
	first := p.host.Items().Available()
	if len(first) != 4 {
		t.Fatalf("first round has %d clubs", len(first))
	}

	// The host picks up one club and the guest another.
	p.host.Physics().SetPosition(physics.Player(0), first[0].Pos)
	p.step()
	p.host.Physics().SetPosition(physics.Player(0), geom.V(-1000, -1000))
	p.guest.Physics().SetPosition(physics.Player(1), first[1].Pos)
	p.host.Physics().SetPosition(physics.Player(1), first[1].Pos)
	p.step()
	p.step()
	if n := len(p.host.Items().Available()); n != 2 {
		t.Fatalf("%d clubs left after two pickups", n)
	}
	if p.host.Roster().Slot(0).Inventory.Empty(0) || p.guest.Roster().Slot(1).Inventory.Empty(0) {
		t.Fatal("pickups did not land in the bags")
	}

	for i := 0; i < world.HolesPerRound; i++ {
		ball := physics.Ball(0)
		p.host.Physics().SetPosition(ball, p.host.Holes().Pos())
		p.host.Physics().SetVelocity(ball, geom.Vec2{})
		p.step()
	}
	if p.host.MatchActive() || !p.guest.Holes().RoundOver() {
		t.Fatalf("round not over: host active %v, guest hole %d", p.host.MatchActive(), p.guest.Holes().Index())
	}

	p.now = p.now.Add(RoundRestartDelay)
	p.step()

	if !p.host.MatchActive() || p.host.Holes().Index() != 0 || p.guest.Holes().Index() != 0 {
		t.Fatalf("new round not started: host hole %d, guest hole %d", p.host.Holes().Index(), p.guest.Holes().Index())
	}
	next := p.host.Items().Available()
	if len(next) != 4 {
		t.Errorf("new round has %d clubs, want 4", len(next))
	}
	for _, it := range next {
		if it.ID < 4 {
			t.Errorf("club id %d reused from the last round", it.ID)
		}
	}
	if got := p.guest.Items().Available(); len(got) != len(next) {
		t.Errorf("guest sees %d clubs, host %d", len(got), len(next))
	}
	for name, s := range map[string]*world.Slot{
		"host local":  p.host.Roster().Slot(0),
		"host remote": p.host.Roster().Slot(1),
		"guest local": p.guest.Roster().Slot(1),
	} {
		if !s.Inventory.Empty(0) || !s.Inventory.Empty(1) {
			t.Errorf("%s bag kept %+v", name, s.Inventory.Slots)
		}
	}
}

type heldKeys protocol.Keys

func (k heldKeys) Keys() protocol.Keys     { return protocol.Keys(k) }
func (heldKeys) Pointer() protocol.Pointer { return protocol.Pointer{} }

func TestClubSelectionReachesGuest(t *testing.T) {
	p := newPair(t)
	p.host.input = heldKeys{Two: true}
	p.step()

	if got := p.host.Roster().Slot(0).Inventory.Active; got != 1 {
		t.Errorf("host active slot = %d, want 1", got)
	}
	if got := p.guest.Roster().Slot(0).Inventory.Active; got != 1 {
		t.Errorf("guest view of host active slot = %d, want 1", got)
	}

	p.host.input = heldKeys{}
	p.step()
	if got := p.host.Roster().Slot(0).Inventory.Active; got != 1 {
		t.Errorf("active slot changed without a key: %d", got)
	}
}
