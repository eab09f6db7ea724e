package authority

import (
	"github.com/Lyon85/321-Golf/internal/physics"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

// Arbiter is the host's record of cart ownership. The owner it publishes in
// each snapshot is what makes a second claimant back off.
type Arbiter struct {
	hostSlot     int
	releaseSpeed float64
	owners       []int
}

func NewArbiter(hostSlot, carts int, th Thresholds) *Arbiter {
	a := &Arbiter{hostSlot: hostSlot, releaseSpeed: th.ReleaseSpeed, owners: make([]int, carts)}
	for i := range a.owners {
		a.owners[i] = Host
	}
	return a
}

func (a *Arbiter) CartOwner(cart int) int {
	if cart < 0 || cart >= len(a.owners) {
		return Host
	}
	return a.owners[cart]
}

// Owner implements Resolver. Players and balls never leave the host.
func (a *Arbiter) Owner(id physics.BodyID) int {
	if id.Kind != protocol.KindCart {
		return Host
	}
	return a.CartOwner(id.Index)
}

// Accept decides whether a cart_update from slot from may be applied. driver
// is the slot seated in the cart, or NoSlot.
func (a *Arbiter) Accept(from int, cart int, driver int) bool {
	if cart < 0 || cart >= len(a.owners) || from == a.hostSlot {
		return false
	}
	if driver != protocol.NoSlot && driver != from {
		return false
	}
	if driver == from {
		a.owners[cart] = from
		return true
	}
	switch a.owners[cart] {
	case Host:
		a.owners[cart] = from
		return true
	case from:
		return true
	default:
		return false
	}
}

// Update runs once per host tick. remoteDriver reports the remote human
// seated in each cart, or NoSlot; carts driven by the host or its bots stay
// with the host.
func (a *Arbiter) Update(e physics.Engine, remoteDriver func(cart int) int) {
	for i := range a.owners {
		driver := remoteDriver(i)
		switch {
		case driver == a.hostSlot:
			a.owners[i] = Host
		case driver != protocol.NoSlot:
			a.owners[i] = driver
		case a.owners[i] != Host && physics.Speed(e, physics.Cart(i)) < a.releaseSpeed:
			a.owners[i] = Host
		}
	}
}

// Release returns every cart held by slot to the host.
func (a *Arbiter) Release(slot int) {
	for i, o := range a.owners {
		if o == slot {
			a.owners[i] = Host
		}
	}
}
