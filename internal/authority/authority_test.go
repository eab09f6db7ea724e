package authority

import (
	"testing"

	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/physics"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

var testThresholds = Thresholds{ClaimRadius: 80, ClaimSpeed: 0.5, ReleaseSpeed: 0.2}

func noDriver(int) int { return protocol.NoSlot }

// guestWorld is one guest's local physics with its player beside cart 0.
func guestWorld(slot int, cartVel geom.Vec2) *physics.Kinematic {
	k := physics.NewKinematic()
	k.Add(physics.Cart(0), geom.V(100, 100))
	k.SetVelocity(physics.Cart(0), cartVel)
	k.Add(physics.Player(slot), geom.V(130, 100))
	return k
}

func TestClaimRequiresProximityAndSpeed(t *testing.T) {
	k := guestWorld(1, geom.V(0.1, 0))
	c := NewClaims(1, 1, testThresholds)

	c.Update(k, protocol.NoSlot)
	if c.Owns(0) {
		t.Fatal("claimed a cart that is barely moving")
	}

	k.SetVelocity(physics.Cart(0), geom.V(2, 0))
	k.SetPosition(physics.Player(1), geom.V(500, 500))
	c.Update(k, protocol.NoSlot)
	if c.Owns(0) {
		t.Fatal("claimed a cart out of reach")
	}

	k.SetPosition(physics.Player(1), geom.V(130, 100))
	c.Update(k, protocol.NoSlot)
	if !c.Owns(0) {
		t.Fatal("did not claim a pushed cart in reach")
	}
}

func TestClaimHysteresis(t *testing.T) {
	k := guestWorld(1, geom.V(2, 0))
	c := NewClaims(1, 1, testThresholds)
	c.Update(k, protocol.NoSlot)

	// Walk away while the cart keeps rolling between the two thresholds.
	k.SetPosition(physics.Player(1), geom.V(900, 900))
	k.SetVelocity(physics.Cart(0), geom.V(0.3, 0))
	c.Update(k, protocol.NoSlot)
	if !c.Owns(0) {
		t.Fatal("claim lost above release speed")
	}

	k.SetVelocity(physics.Cart(0), geom.V(0.1, 0))
	c.Update(k, protocol.NoSlot)
	if c.Owns(0) {
		t.Fatal("claim kept after cart stopped")
	}
}

func TestDriverAlwaysOwns(t *testing.T) {
	k := guestWorld(1, geom.Vec2{})
	c := NewClaims(1, 1, testThresholds)
	c.Update(k, 0)
	if !c.Owns(0) {
		t.Fatal("driver does not own a stationary cart")
	}
	c.Observe(0, 2, 0)
	if !c.Owns(0) {
		t.Error("driver backed off on a foreign snapshot owner")
	}

	a := NewArbiter(0, 1, testThresholds)
	if !a.Accept(1, 0, 1) {
		t.Fatal("arbiter rejected the driver")
	}
	if a.Accept(2, 0, 1) {
		t.Error("arbiter accepted a non-driver while driven")
	}
}

// Two guests push the same cart at the same instant. The host accepts the
// first cart_update, names that guest in its snapshot, and the other guest
// backs off. After that at most one guest claims the cart on every tick.
func TestCartAuthorityExclusivity(t *testing.T) {
	push := geom.V(2, 0)
	worlds := map[int]*physics.Kinematic{1: guestWorld(1, push), 2: guestWorld(2, push)}
	claims := map[int]*Claims{1: NewClaims(1, 1, testThresholds), 2: NewClaims(2, 1, testThresholds)}
	host := physics.NewKinematic()
	host.Add(physics.Cart(0), geom.V(100, 100))
	arb := NewArbiter(0, 1, testThresholds)

	for _, slot := range []int{1, 2} {
		claims[slot].Update(worlds[slot], protocol.NoSlot)
	}
	if !claims[1].Owns(0) || !claims[2].Owns(0) {
		t.Fatal("setup: both guests should claim on the first tick")
	}

	// Both send cart_update; guest 1's arrives first.
	var senders []int
	for _, slot := range []int{1, 2} {
		if claims[slot].Owns(0) && arb.Accept(slot, 0, protocol.NoSlot) {
			senders = append(senders, slot)
			host.SetVelocity(physics.Cart(0), worlds[slot].Velocity(physics.Cart(0)))
		}
	}
	if len(senders) != 1 || senders[0] != 1 {
		t.Fatalf("host accepted %v, want [1]", senders)
	}

	for tick := 0; tick < 120; tick++ {
		arb.Update(host, noDriver)
		owner := arb.CartOwner(0)
		for _, slot := range []int{1, 2} {
			claims[slot].Observe(0, owner, protocol.NoSlot)
			worlds[slot].Step()
			claims[slot].Update(worlds[slot], protocol.NoSlot)
		}
		n := 0
		for _, slot := range []int{1, 2} {
			if claims[slot].Owns(0) {
				n++
				if slot != owner && owner != Host {
					t.Fatalf("tick %d: guest %d claims while host names %d", tick, slot, owner)
				}
			}
		}
		if n > 1 {
			t.Fatalf("tick %d: %d guests claim cart 0", tick, n)
		}
		host.SetVelocity(physics.Cart(0), worlds[1].Velocity(physics.Cart(0)))
		host.Step()
	}
	if claims[2].Owns(0) {
		t.Error("second claimant never backed off")
	}
}

func TestArbiterReleasesStoppedCart(t *testing.T) {
	k := physics.NewKinematic()
	k.SetVelocity(physics.Cart(0), geom.V(1, 0))
	a := NewArbiter(0, 1, testThresholds)
	if !a.Accept(2, 0, protocol.NoSlot) {
		t.Fatal("unowned cart rejected")
	}
	a.Update(k, noDriver)
	if a.CartOwner(0) != 2 {
		t.Fatalf("owner = %d, want 2", a.CartOwner(0))
	}
	k.SetVelocity(physics.Cart(0), geom.V(0.05, 0))
	a.Update(k, noDriver)
	if a.CartOwner(0) != Host {
		t.Errorf("owner = %d after stop, want host", a.CartOwner(0))
	}
	if a.Owner(physics.Player(2)) != Host || a.Owner(physics.Ball(2)) != Host {
		t.Error("host yielded a player or ball")
	}
}

func TestArbiterReleaseOnLeave(t *testing.T) {
	a := NewArbiter(0, 2, testThresholds)
	a.Accept(1, 0, protocol.NoSlot)
	a.Accept(1, 1, protocol.NoSlot)
	a.Release(1)
	if a.CartOwner(0) != Host || a.CartOwner(1) != Host {
		t.Error("carts still owned after the guest left")
	}
}
