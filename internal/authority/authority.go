// Package authority decides who is the source of truth for each simulated
// body. The host owns everything by default; a guest may temporarily own a
// cart it is driving or pushing.
package authority

import (
	"github.com/Lyon85/321-Golf/internal/config"
	"github.com/Lyon85/321-Golf/internal/physics"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

// Host is the owner value for host-default authority.
const Host = protocol.NoSlot

// Thresholds control cart claims. ClaimSpeed must not be below ReleaseSpeed
// or ownership flaps on a slowly rolling cart.
type Thresholds struct {
	ClaimRadius  float64
	ClaimSpeed   float64
	ReleaseSpeed float64
}

func ThresholdsFromTuning(t config.Tuning) Thresholds {
	return Thresholds{
		ClaimRadius:  t.Authority.ClaimRadius,
		ClaimSpeed:   t.Authority.ClaimSpeed,
		ReleaseSpeed: t.Authority.ReleaseSpeed,
	}
}

// Resolver answers who owns a body right now.
type Resolver interface {
	Owner(id physics.BodyID) int
}

// Claims tracks the carts a guest believes it owns. Recomputed every tick.
type Claims struct {
	local    int
	th       Thresholds
	owned    []bool
	observed []int
}

func NewClaims(local, carts int, th Thresholds) *Claims {
	c := &Claims{local: local, th: th, owned: make([]bool, carts), observed: make([]int, carts)}
	for i := range c.observed {
		c.observed[i] = Host
	}
	return c
}

func (c *Claims) Owns(cart int) bool {
	return cart >= 0 && cart < len(c.owned) && c.owned[cart]
}

// Owned lists carts currently claimed.
func (c *Claims) Owned() []int {
	var out []int
	for i, o := range c.owned {
		if o {
			out = append(out, i)
		}
	}
	return out
}

// Owner implements Resolver from the guest's point of view.
func (c *Claims) Owner(id physics.BodyID) int {
	if id.Kind == protocol.KindCart && c.Owns(id.Index) {
		return c.local
	}
	return Host
}

// Update recomputes claims for one tick. driving is the cart the local
// player sits in, or NoSlot.
func (c *Claims) Update(e physics.Engine, driving int) {
	me := e.Position(physics.Player(c.local))
	for i := range c.owned {
		id := physics.Cart(i)
		speed := physics.Speed(e, id)
		switch {
		case i == driving:
			c.owned[i] = true
		case c.owned[i]:
			if speed < c.th.ReleaseSpeed {
				c.owned[i] = false
			}
		case c.observed[i] != Host && c.observed[i] != c.local:
			// someone else holds it
		default:
			if speed > c.th.ClaimSpeed && me.Dist(e.Position(id)) <= c.th.ClaimRadius {
				c.owned[i] = true
			}
		}
	}
}

// Observe records the owner named in a host snapshot. A claim contradicted
// by the host is dropped unless we are driving the cart.
func (c *Claims) Observe(cart, owner, driving int) {
	if cart < 0 || cart >= len(c.owned) {
		return
	}
	c.observed[cart] = owner
	if owner != Host && owner != c.local && cart != driving {
		c.owned[cart] = false
	}
}

// Reset drops every claim, e.g. after a reconnect.
func (c *Claims) Reset() {
	for i := range c.owned {
		c.owned[i] = false
		c.observed[i] = Host
	}
}
