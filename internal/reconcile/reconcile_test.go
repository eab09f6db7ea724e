package reconcile

import (
	"math"
	"testing"
	"time"

	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/physics"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

var testPolicy = Policy{
	OwnSnapDistance:    100,
	RemoteSnapDistance: 200,
	RemoteSmoothing:    0.3,
	CartSnapDistance:   50,
	CartSmoothing:      0.15,
	CartStaleAfter:     200 * time.Millisecond,
}

func player(id int, pos geom.Vec2) protocol.PlayerSnapshot {
	return protocol.PlayerSnapshot{
		EntitySnapshot: protocol.EntitySnapshot{ID: id, Kind: protocol.KindPlayer, Pos: pos},
		DrivingCart:    protocol.NoSlot,
	}
}

type ownSet map[int]bool

func (o ownSet) Owns(cart int) bool { return o[cart] }

func TestSnapThresholdBoundary(t *testing.T) {
	cases := []struct {
		dist float64
		want Outcome
	}{
		{199.9, Smoothed},
		{200, Smoothed},
		{200.1, Snapped},
	}
	for _, c := range cases {
		k := physics.NewKinematic()
		e := New(testPolicy, k, 1, 0)
		rep := e.ApplySnapshot(protocol.StateUpdate{Players: []protocol.PlayerSnapshot{player(2, geom.V(c.dist, 0))}}, time.Now(), false)
		if got := rep.Players[2]; got != c.want {
			t.Errorf("remote at %.1f: outcome %v, want %v", c.dist, got, c.want)
		}
		want := c.dist
		if c.want == Smoothed {
			want = c.dist * 0.3
		}
		if x := k.Position(physics.Player(2)).X; math.Abs(x-want) > 1e-9 {
			t.Errorf("remote at %.1f: x = %.4f, want %.4f", c.dist, x, want)
		}
	}
}

func TestRemoteSmoothingConverges(t *testing.T) {
	target := geom.V(150, -80)
	cur := geom.V(10, 20)
	start := cur.Dist(target)
	eps := 0.01

	// |d_n| = (1-f)^n |d_0|, so the bound below is tight up to one tick.
	bound := int(math.Ceil(math.Log(eps/start)/math.Log(1-testPolicy.RemoteSmoothing))) + 1
	n := 0
	for cur.Dist(target) > eps {
		prev := cur.Dist(target)
		var out Outcome
		cur, out = Smooth(cur, target, testPolicy.RemoteSnapDistance, testPolicy.RemoteSmoothing)
		if out != Smoothed {
			t.Fatalf("tick %d: outcome %v", n, out)
		}
		ratio := cur.Dist(target) / prev
		if math.Abs(ratio-(1-testPolicy.RemoteSmoothing)) > 1e-9 {
			t.Fatalf("tick %d: ratio %.6f, want %.2f", n, ratio, 1-testPolicy.RemoteSmoothing)
		}
		n++
		if n > bound {
			t.Fatalf("not within %.2f after %d ticks", eps, n)
		}
	}
}

func TestOwnPlayerPolicy(t *testing.T) {
	k := physics.NewKinematic()
	k.Add(physics.Player(1), geom.V(0, 0))
	e := New(testPolicy, k, 1, 0)

	rep := e.ApplySnapshot(protocol.StateUpdate{Players: []protocol.PlayerSnapshot{player(1, geom.V(60, 0))}}, time.Now(), false)
	if rep.Players[1] != Kept || k.Position(physics.Player(1)) != geom.V(0, 0) {
		t.Errorf("small gap: %v at %+v, want kept", rep.Players[1], k.Position(physics.Player(1)))
	}

	rep = e.ApplySnapshot(protocol.StateUpdate{Players: []protocol.PlayerSnapshot{player(1, geom.V(300, 0))}}, time.Now(), true)
	if rep.Players[1] != Skipped || k.Position(physics.Player(1)) != geom.V(0, 0) {
		t.Errorf("driving: %v, want skipped", rep.Players[1])
	}

	rep = e.ApplySnapshot(protocol.StateUpdate{Players: []protocol.PlayerSnapshot{player(1, geom.V(300, 0))}}, time.Now(), false)
	if rep.Players[1] != Snapped || k.Position(physics.Player(1)) != geom.V(300, 0) {
		t.Errorf("desync: %v, want snapped", rep.Players[1])
	}
}

func TestBallsAreHardSet(t *testing.T) {
	k := physics.NewKinematic()
	e := New(testPolicy, k, 1, 0)
	balls := []protocol.BallSnapshot{
		{EntitySnapshot: protocol.EntitySnapshot{ID: 1, Kind: protocol.KindBall, Pos: geom.V(1, 2), Vel: geom.V(3, 4)}, Height: 5},
		{EntitySnapshot: protocol.EntitySnapshot{ID: 2, Kind: protocol.KindBall, Pos: geom.V(900, 900)}},
	}
	e.ApplySnapshot(protocol.StateUpdate{Balls: balls}, time.Now(), false)
	if k.Position(physics.Ball(1)) != geom.V(1, 2) || k.Velocity(physics.Ball(1)) != geom.V(3, 4) || k.Height(physics.Ball(1)) != 5 {
		t.Error("own ball not hard-set")
	}
	if k.Position(physics.Ball(2)) != geom.V(900, 900) {
		t.Error("remote ball not hard-set")
	}
}

func cartSnap(id int, pos, vel geom.Vec2, angle float64) protocol.CartSnapshot {
	return protocol.CartSnapshot{
		EntitySnapshot: protocol.EntitySnapshot{ID: id, Kind: protocol.KindCart, Pos: pos, Vel: vel, Angle: angle},
		Owner:          protocol.NoSlot,
	}
}

func TestCartPolicy(t *testing.T) {
	k := physics.NewKinematic()
	e := New(testPolicy, k, 1, 2)
	now := time.Now()

	e.ApplySnapshot(protocol.StateUpdate{Carts: []protocol.CartSnapshot{
		cartSnap(0, geom.V(40, 0), geom.V(1, 1), 0),
		cartSnap(1, geom.V(400, 0), geom.V(2, 0), 1),
	}}, now, false)
	out := e.Step(now.Add(16*time.Millisecond), nil)

	if out[0] != Smoothed {
		t.Errorf("cart 0: %v, want smoothed", out[0])
	}
	if x := k.Position(physics.Cart(0)).X; math.Abs(x-6) > 1e-9 {
		t.Errorf("cart 0 x = %.4f, want 6", x)
	}
	if k.Velocity(physics.Cart(0)) != geom.V(1, 1) {
		t.Error("cart 0 velocity not set directly")
	}
	if out[1] != Snapped || k.Position(physics.Cart(1)) != geom.V(400, 0) {
		t.Errorf("cart 1: %v at %+v, want snapped", out[1], k.Position(physics.Cart(1)))
	}

	out = e.Step(now.Add(250*time.Millisecond), nil)
	if out[0] != Stale || out[1] != Stale {
		t.Errorf("old targets: %v", out)
	}
	before := k.Position(physics.Cart(0))
	out = e.Step(now.Add(260*time.Millisecond), nil)
	if _, touched := out[0]; touched || k.Position(physics.Cart(0)) != before {
		t.Error("discarded target still applied")
	}
}

func TestCartAngleTakesShortArc(t *testing.T) {
	k := physics.NewKinematic()
	k.SetAngle(physics.Cart(0), 179*math.Pi/180)
	e := New(testPolicy, k, 1, 1)
	now := time.Now()
	e.ApplySnapshot(protocol.StateUpdate{Carts: []protocol.CartSnapshot{
		cartSnap(0, geom.Vec2{}, geom.Vec2{}, -179*math.Pi/180),
	}}, now, false)
	e.Step(now, nil)

	a := k.Angle(physics.Cart(0))
	if math.Abs(a) < 179*math.Pi/180 {
		t.Errorf("angle %.4f rad swung through zero", a)
	}
}

func TestOwnedCartNotReconciled(t *testing.T) {
	k := physics.NewKinematic()
	k.Add(physics.Cart(0), geom.V(5, 5))
	e := New(testPolicy, k, 1, 1)
	now := time.Now()
	e.ApplySnapshot(protocol.StateUpdate{Carts: []protocol.CartSnapshot{cartSnap(0, geom.V(300, 300), geom.Vec2{}, 0)}}, now, false)

	out := e.Step(now, ownSet{0: true})
	if out[0] != Skipped || k.Position(physics.Cart(0)) != geom.V(5, 5) {
		t.Errorf("owned cart: %v at %+v", out[0], k.Position(physics.Cart(0)))
	}
}

func TestCartUpdateFromOwnerIsTarget(t *testing.T) {
	k := physics.NewKinematic()
	e := New(testPolicy, k, 2, 1)
	now := time.Now()
	e.ApplyCartUpdate(protocol.CartUpdate{Index: 0, X: 10, VX: 1}, now)
	if out := e.Step(now, nil); out[0] != Smoothed {
		t.Errorf("outcome %v, want smoothed", out[0])
	}
}

func TestRemoteDriverRidesWithCart(t *testing.T) {
	k := physics.NewKinematic()
	e := New(testPolicy, k, 1, 2)
	now := time.Now()

	driver := player(2, geom.V(0, 0))
	driver.Driving = true
	driver.DrivingCart = 0
	for i := 0; i < 30; i++ {
		now = now.Add(16 * time.Millisecond)
		target := geom.V(500+float64(i)*10, 0)
		rep := e.ApplySnapshot(protocol.StateUpdate{
			Players: []protocol.PlayerSnapshot{driver},
			Carts:   []protocol.CartSnapshot{cartSnap(0, target, geom.V(10, 0), 0.5)},
		}, now, false)
		if rep.Players[2] != Skipped {
			t.Fatalf("snapshot %d: driver outcome %v, want skipped", i, rep.Players[2])
		}
		e.Step(now, nil)

		cart, seat := k.Position(physics.Cart(0)), k.Position(physics.Player(2))
		if seat != cart {
			t.Fatalf("snapshot %d: driver at %+v, cart at %+v", i, seat, cart)
		}
	}
	if k.Velocity(physics.Player(2)) != geom.V(10, 0) {
		t.Errorf("driver velocity %+v", k.Velocity(physics.Player(2)))
	}

	// Once out of the cart the player is smoothed on its own again.
	walker := player(2, k.Position(physics.Player(2)).Add(geom.V(10, 0)))
	e.ApplySnapshot(protocol.StateUpdate{Players: []protocol.PlayerSnapshot{walker}}, now, false)
	before := k.Position(physics.Player(2))
	k.SetPosition(physics.Cart(0), geom.V(0, 900))
	e.Step(now, nil)
	if k.Position(physics.Player(2)) != before {
		t.Error("player still pinned to the cart after leaving it")
	}
}
