package world

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

func newRegistry(t *testing.T, n int) *ItemRegistry {
	t.Helper()
	r := NewItemRegistry()
	r.Generate(n, 4000, 4000, rand.New(rand.NewSource(1)))
	if r.Len() != n {
		t.Fatalf("generated %d items, want %d", r.Len(), n)
	}
	return r
}

func TestPickupResolvedExactlyOnce(t *testing.T) {
	r := newRegistry(t, 5)

	// Two clients race for item 3; requests are serialized by the owner of
	// the registry, as the relay hub and host tick do.
	var mu sync.Mutex
	var wg sync.WaitGroup
	resolved := make(chan protocol.ClubTaken, 2)
	for _, player := range []int{1, 2} {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			mu.Lock()
			res, ok := r.ResolvePickup(3, p)
			mu.Unlock()
			if ok {
				resolved <- res.Taken
			}
		}(player)
	}
	wg.Wait()
	close(resolved)

	var events []protocol.ClubTaken
	for ev := range resolved {
		events = append(events, ev)
	}
	if len(events) != 1 {
		t.Fatalf("got %d club_taken events for item 3, want 1", len(events))
	}
	it, _ := r.Get(3)
	if !it.Taken {
		t.Error("item 3 not marked taken")
	}
	if _, ok := r.ResolvePickup(3, events[0].PlayerIndex); ok {
		t.Error("repeat request by the winner resolved again")
	}
	for _, av := range r.Available() {
		if av.ID == 3 {
			t.Error("taken item still listed as available")
		}
	}
}

func TestPickupUnknownItemIsNoop(t *testing.T) {
	r := newRegistry(t, 2)
	if _, ok := r.ResolvePickup(42, 0); ok {
		t.Error("pickup of unknown item resolved")
	}
}

func TestSwapConservation(t *testing.T) {
	r := newRegistry(t, 4)
	target, _ := r.Get(2)

	inv := Inventory{}
	inv.Add(TypeByName("Putter"))
	inv.Add(TypeByName("Iron"))
	inv.Select(1)

	drop := geom.V(123.5, 456.25)
	slot := inv.SwapSlot()
	res, ok := r.ResolveSwap(target.ID, 1, slot, inv.Slots[slot].Name, drop)
	if !ok {
		t.Fatal("swap not resolved")
	}
	if err := inv.Apply(res.Taken); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if inv.Slots[1] != target.Type {
		t.Errorf("slot 1 = %+v, want %+v", inv.Slots[1], target.Type)
	}
	if inv.Slots[0].Name != "Putter" {
		t.Errorf("untouched slot changed to %+v", inv.Slots[0])
	}
	if res.Spawned == nil {
		t.Fatal("swap spawned no item")
	}
	if res.Spawned.Pos != drop {
		t.Errorf("spawned at %+v, want %+v", res.Spawned.Pos, drop)
	}
	if res.Spawned.Type.Name != "Iron" {
		t.Errorf("spawned type %q, want Iron", res.Spawned.Type.Name)
	}
	for id := 0; id < 4; id++ {
		if res.Spawned.ID == id {
			t.Errorf("spawned item reused id %d", id)
		}
	}
	if _, ok := r.ResolveSwap(target.ID, 2, 0, "Driver", drop); ok {
		t.Error("second swap on taken item resolved")
	}
}

func TestInventoryAddFull(t *testing.T) {
	var inv Inventory
	for i := 0; i < protocol.InventorySize; i++ {
		if _, err := inv.Add(ItemTypes[i]); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	if _, err := inv.Add(ItemTypes[0]); err != ErrInventoryFull {
		t.Errorf("err = %v, want ErrInventoryFull", err)
	}
	if err := inv.Select(2); err == nil {
		t.Error("Select(2) accepted")
	}
}

func TestHoleIndexMonotonic(t *testing.T) {
	var h HoleTracker

	idx, ok := h.ReportSunk(0)
	if !ok || idx != 1 {
		t.Fatalf("first report: idx=%d ok=%v, want 1 true", idx, ok)
	}
	// A second player reports the same hole after it already advanced.
	idx, ok = h.ReportSunk(0)
	if ok || idx != 1 {
		t.Errorf("duplicate report: idx=%d ok=%v, want 1 false", idx, ok)
	}

	var guest HoleTracker
	seen := []int{}
	for _, broadcast := range []int{1, 1, 2, 1, 3} {
		if guest.Advance(broadcast) {
			seen = append(seen, guest.Index())
		}
	}
	want := []int{1, 2, 3}
	if len(seen) != len(want) {
		t.Fatalf("observed %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("observed %v, want %v", seen, want)
		}
	}
}

func TestRoundEndsAfterTenHoles(t *testing.T) {
	var h HoleTracker
	for i := 0; i < HolesPerRound; i++ {
		if _, ok := h.ReportSunk(i); !ok {
			t.Fatalf("hole %d not counted", i)
		}
	}
	if !h.RoundOver() {
		t.Error("round not over after 10 holes")
	}
	if _, ok := h.ReportSunk(HolesPerRound); ok {
		t.Error("counter advanced past the round")
	}
}

func TestPlaceHoleKeepsDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	spawn := geom.V(2000, 2000)
	for i := 0; i < 50; i++ {
		p := PlaceHole(spawn, 4000, 4000, rng, nil)
		if d := p.Dist(spawn); d < 1200 {
			t.Fatalf("hole %v only %.0f from spawn", p, d)
		}
	}
}

func TestPlaceHoleAvoidsBlocked(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	water := func(p geom.Vec2) bool { return p.X < 2000 }
	for i := 0; i < 20; i++ {
		if p := PlaceHole(geom.V(0, 0), 4000, 4000, rng, water); p.X < 2000 {
			t.Fatalf("hole placed in water at %v", p)
		}
	}
}

func TestRosterCartOccupancy(t *testing.T) {
	r := NewRoster(0, 2)
	r.MarkHuman(1)
	if got := r.Controller(1); got != RemoteHuman {
		t.Fatalf("slot 1 controller = %v", got)
	}
	if err := r.Enter(1, 0); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := r.Enter(2, 0); err == nil {
		t.Error("second driver seated in occupied cart")
	}
	r.RevertToBot(1)
	if r.Controller(1) != Bot {
		t.Error("slot 1 not reverted to bot")
	}
	if r.Occupant(0) != protocol.NoSlot {
		t.Error("departed player still occupies cart 0")
	}
	r.SetOccupancy(1, 3)
	if !r.Slot(3).Driving() || r.Slot(3).DrivingCart != 1 {
		t.Errorf("slot 3 = %+v", r.Slot(3))
	}
	r.SetOccupancy(1, protocol.NoSlot)
	if r.Slot(3).Driving() {
		t.Error("slot 3 still driving after vacate")
	}
}
