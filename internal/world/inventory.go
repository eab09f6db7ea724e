package world

import (
	"errors"
	"fmt"

	"github.com/Lyon85/321-Golf/internal/protocol"
)

var (
	ErrInventoryFull = errors.New("world: inventory full")
	ErrBadSlot       = errors.New("world: bad inventory slot")
)

// Inventory is a player's fixed two-slot club bag. It changes only when a
// club_taken resolution names its owner.
type Inventory struct {
	Slots  [protocol.InventorySize]protocol.ItemType
	Active int
}

func (inv *Inventory) Empty(slot int) bool {
	return inv.Slots[slot].Name == ""
}

// Full reports whether every slot holds a club.
func (inv *Inventory) Full() bool {
	for i := range inv.Slots {
		if inv.Empty(i) {
			return false
		}
	}
	return true
}

// Add places t in the first empty slot.
func (inv *Inventory) Add(t protocol.ItemType) (int, error) {
	for i := range inv.Slots {
		if inv.Empty(i) {
			inv.Slots[i] = t
			return i, nil
		}
	}
	return -1, ErrInventoryFull
}

// Replace swaps the club in slot for t and returns the old one.
func (inv *Inventory) Replace(slot int, t protocol.ItemType) (protocol.ItemType, error) {
	if slot < 0 || slot >= len(inv.Slots) {
		return protocol.ItemType{}, fmt.Errorf("%w: %d", ErrBadSlot, slot)
	}
	old := inv.Slots[slot]
	inv.Slots[slot] = t
	return old, nil
}

func (inv *Inventory) Select(slot int) error {
	if slot < 0 || slot >= len(inv.Slots) {
		return fmt.Errorf("%w: %d", ErrBadSlot, slot)
	}
	inv.Active = slot
	return nil
}

func (inv *Inventory) ActiveItem() protocol.ItemType {
	return inv.Slots[inv.Active]
}

// SwapSlot picks the slot a swap should replace: the active one if it holds a
// club, otherwise the first occupied slot.
func (inv *Inventory) SwapSlot() int {
	if !inv.Empty(inv.Active) {
		return inv.Active
	}
	for i := range inv.Slots {
		if !inv.Empty(i) {
			return i
		}
	}
	return inv.Active
}

// Apply performs a resolved pickup or swap on this inventory.
func (inv *Inventory) Apply(ct protocol.ClubTaken) error {
	if ct.Swap {
		_, err := inv.Replace(ct.Slot, ct.ItemType)
		return err
	}
	_, err := inv.Add(ct.ItemType)
	return err
}
