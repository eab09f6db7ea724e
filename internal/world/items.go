package world

import (
	"math/rand"
	"sort"

	"github.com/Lyon85/321-Golf/internal/geom"
	"github.com/Lyon85/321-Golf/internal/protocol"
)

// ItemTypes are the club kinds scattered over the course.
var ItemTypes = []protocol.ItemType{
	{Name: "Driver", Color: 0xff4757},
	{Name: "Iron", Color: 0x2ed573},
	{Name: "Putter", Color: 0x1e90ff},
	{Name: "Wedge", Color: 0xffa502},
}

const itemMargin = 50

// TypeByName looks up a club kind, keeping unknown names with no color.
func TypeByName(name string) protocol.ItemType {
	for _, t := range ItemTypes {
		if t.Name == name {
			return t
		}
	}
	return protocol.ItemType{Name: name}
}

// Item is a pickup together with its resolution flag.
type Item struct {
	protocol.Item
	Taken bool
}

// Resolution is the outcome of an honored pickup or swap request.
type Resolution struct {
	Taken   protocol.ClubTaken
	Spawned *protocol.Item
}

// ItemRegistry is the authoritative item table of one room. Ids are handed
// out monotonically and never reused, so a spawned item can't be confused
// with one that was taken earlier.
type ItemRegistry struct {
	items  map[int]*Item
	nextID int
}

func NewItemRegistry() *ItemRegistry {
	return &ItemRegistry{items: make(map[int]*Item)}
}

// Generate scatters n random clubs over a w×h field.
func (r *ItemRegistry) Generate(n int, w, h float64, rng *rand.Rand) {
	for i := 0; i < n; i++ {
		pos := geom.V(
			itemMargin+rng.Float64()*(w-2*itemMargin),
			itemMargin+rng.Float64()*(h-2*itemMargin),
		)
		r.add(ItemTypes[rng.Intn(len(ItemTypes))], pos.Quantized())
	}
}

func (r *ItemRegistry) add(t protocol.ItemType, pos geom.Vec2) *Item {
	it := &Item{Item: protocol.Item{ID: r.nextID, Type: t, Pos: pos}}
	r.items[it.ID] = it
	r.nextID++
	return it
}

// Load replaces the table with a layout received from the authority.
func (r *ItemRegistry) Load(items []protocol.Item) {
	r.items = make(map[int]*Item, len(items))
	r.nextID = 0
	for _, it := range items {
		r.Insert(it)
	}
}

// Clear drops every item for a new layout. Ids keep counting up so late
// requests for an old club can't hit a new one.
func (r *ItemRegistry) Clear() {
	r.items = make(map[int]*Item)
}

// Insert adds an item announced by the authority (club_spawned).
func (r *ItemRegistry) Insert(it protocol.Item) {
	r.items[it.ID] = &Item{Item: it}
	if it.ID >= r.nextID {
		r.nextID = it.ID + 1
	}
}

func (r *ItemRegistry) Get(id int) (Item, bool) {
	it, ok := r.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// MarkTaken records a resolution received from the authority.
func (r *ItemRegistry) MarkTaken(id int) {
	if it, ok := r.items[id]; ok {
		it.Taken = true
	}
}

// Available lists untaken items ordered by id.
func (r *ItemRegistry) Available() []protocol.Item {
	out := make([]protocol.Item, 0, len(r.items))
	for _, it := range r.items {
		if !it.Taken {
			out = append(out, it.Item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *ItemRegistry) Len() int { return len(r.items) }

// Nearest returns the closest untaken item within radius of pos.
func (r *ItemRegistry) Nearest(pos geom.Vec2, radius float64) (protocol.Item, bool) {
	var best protocol.Item
	bestDist := radius
	found := false
	for _, it := range r.items {
		if it.Taken {
			continue
		}
		if d := it.Pos.Dist(pos); d <= bestDist {
			if found && d == bestDist && it.ID > best.ID {
				continue
			}
			best, bestDist, found = it.Item, d, true
		}
	}
	return best, found
}

// ResolvePickup honors a pickup request exactly once. The taken flag flips
// before anything is broadcast; later requests for the same id are no-ops.
func (r *ItemRegistry) ResolvePickup(itemID, player int) (Resolution, bool) {
	it, ok := r.items[itemID]
	if !ok || it.Taken {
		return Resolution{}, false
	}
	it.Taken = true
	return Resolution{Taken: protocol.ClubTaken{
		ItemID:      it.ID,
		PlayerIndex: player,
		ItemType:    it.Type,
	}}, true
}

// ResolveSwap honors a swap request: the target is taken and the dropped club
// reappears at dropPos under a fresh id.
func (r *ItemRegistry) ResolveSwap(itemID, player, slot int, droppedName string, dropPos geom.Vec2) (Resolution, bool) {
	it, ok := r.items[itemID]
	if !ok || it.Taken {
		return Resolution{}, false
	}
	it.Taken = true
	spawned := r.add(TypeByName(droppedName), dropPos.Quantized())
	item := spawned.Item
	return Resolution{
		Taken: protocol.ClubTaken{
			ItemID:      it.ID,
			PlayerIndex: player,
			ItemType:    it.Type,
			Swap:        true,
			Slot:        slot,
			DroppedType: droppedName,
		},
		Spawned: &item,
	}, true
}
