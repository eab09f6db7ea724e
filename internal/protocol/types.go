package protocol

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Lyon85/321-Golf/internal/geom"
)

// MaxSlots is the fixed roster size. Slot 0 is always the host.
const MaxSlots = 4

// NoSlot marks "nobody" in owner and occupancy fields.
const NoSlot = -1

// InventorySize is the number of club slots a player carries.
const InventorySize = 2

// Role is the part a client plays in a room.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// EntityKind distinguishes the synchronized body classes.
type EntityKind string

const (
	KindPlayer EntityKind = "player"
	KindBall   EntityKind = "ball"
	KindCart   EntityKind = "cart"
)

var (
	shortCodeRe = regexp.MustCompile(`^[A-Z0-9]{4}$`)
	identityRe  = regexp.MustCompile(`^[A-Z]{2,12}-[A-Z0-9]{4}(-[0-9]{1,3})?$`)
)

// ValidRoomID reports whether id is a 4-character room code or a persistent
// prefixed identity such as GOLF-7QX2 (optionally suffixed, GOLF-7QX2-2).
func ValidRoomID(id string) bool {
	return shortCodeRe.MatchString(id) || identityRe.MatchString(id)
}

// NormalizeRoomID upper-cases and trims user-typed room ids.
func NormalizeRoomID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func validSlot(i int) bool {
	return i >= 0 && i < MaxSlots
}

func validOptionalSlot(i int) bool {
	return i == NoSlot || validSlot(i)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

var errNonFinite = errors.New("non-finite coordinate")

func checkSlot(name string, i int) error {
	if !validSlot(i) {
		return fmt.Errorf("%s %d out of range", name, i)
	}
	return nil
}

// ItemType describes a club kind lying in the world.
type ItemType struct {
	Name  string `json:"name"`
	Color uint32 `json:"color"`
}

// Item is a pickup lying in the world.
type Item struct {
	ID   int       `json:"id"`
	Type ItemType  `json:"type"`
	Pos  geom.Vec2 `json:"pos"`
}

func (it Item) validate() error {
	if it.ID < 0 {
		return fmt.Errorf("item id %d negative", it.ID)
	}
	if it.Type.Name == "" {
		return errors.New("item type missing")
	}
	if !it.Pos.IsFinite() {
		return errNonFinite
	}
	return nil
}

// Keys is the pressed-key state a guest forwards to the host. E enters or
// leaves a cart, Q swaps the active club, One and Two select a slot.
type Keys struct {
	W     bool `json:"w"`
	A     bool `json:"a"`
	S     bool `json:"s"`
	D     bool `json:"d"`
	Space bool `json:"space"`
	Shift bool `json:"shift"`
	E     bool `json:"e"`
	Q     bool `json:"q"`
	One   bool `json:"one"`
	Two   bool `json:"two"`
}

// Pointer is the guest's pointer in world coordinates.
type Pointer struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Down bool    `json:"down"`
}
