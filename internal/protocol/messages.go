package protocol

import (
	"errors"
	"fmt"

	"github.com/Lyon85/321-Golf/internal/geom"
)

// Message type discriminators.
const (
	// lobby
	TypeHostRoom          = "host_room"
	TypeJoinRoom          = "join_room"
	TypeCreateRoom        = "create_room"
	TypeRoomCreated       = "room_created"
	TypeJoined            = "joined"
	TypeIDTaken           = "id_taken"
	TypeRoomFull          = "room_full"
	TypeErrorMsg          = "error_msg"
	TypeAssignPlayer      = "assign_player"
	TypeGuestJoined       = "guest_joined"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
	TypeHostDisconnected  = "host_disconnected"
	TypeStartGame         = "start_game"
	TypeWorldState        = "world_state"
	TypeCurrentClubs      = "current_clubs"

	// simulation
	TypeStateUpdate = "state_update"
	TypeInput       = "input"
	TypePlayerInput = "player_input"
	TypePlayerMoved = "player_moved"
	TypeCartUpdate  = "cart_update"

	// world mutations
	TypeRequestPickup    = "request_pickup"
	TypeRequestSwap      = "request_swap"
	TypeClubTaken        = "club_taken"
	TypeClubSpawned      = "club_spawned"
	TypeHoleUpdate       = "hole_update"
	TypeRequestNewHole   = "request_new_hole"
	TypeForceSpawnHole   = "force_spawn_hole"
	TypeHoleSunk         = "hole_sunk"
	TypeSetSpawnPoint    = "set_spawn_point"
	TypeSpawnPointUpdate = "spawn_point_update"
	TypeCartOccupancy    = "cart_occupancy"
)

// MaxCarts bounds the cart roster carried in a snapshot.
const MaxCarts = 8

var registry = map[string]decoder{
	TypeHostRoom:          decoderFor[HostRoom](),
	TypeJoinRoom:          decoderFor[JoinRoom](),
	TypeCreateRoom:        decoderFor[CreateRoom](),
	TypeRoomCreated:       decoderFor[RoomCreated](),
	TypeJoined:            decoderFor[Joined](),
	TypeIDTaken:           decoderFor[IDTaken](),
	TypeRoomFull:          decoderFor[RoomFull](),
	TypeErrorMsg:          decoderFor[ErrorMsg](),
	TypeAssignPlayer:      decoderFor[AssignPlayer](),
	TypeGuestJoined:       decoderFor[GuestJoined](),
	TypeParticipantJoined: decoderFor[ParticipantJoined](),
	TypeParticipantLeft:   decoderFor[ParticipantLeft](),
	TypeHostDisconnected:  decoderFor[HostDisconnected](),
	TypeStartGame:         decoderFor[StartGame](),
	TypeWorldState:        decoderFor[WorldState](),
	TypeCurrentClubs:      decoderFor[CurrentClubs](),

	TypeStateUpdate: decoderFor[StateUpdate](),
	TypeInput:       decoderFor[Input](),
	TypePlayerInput: decoderFor[PlayerInput](),
	TypePlayerMoved: decoderFor[PlayerMoved](),
	TypeCartUpdate:  decoderFor[CartUpdate](),

	TypeRequestPickup:    decoderFor[RequestPickup](),
	TypeRequestSwap:      decoderFor[RequestSwap](),
	TypeClubTaken:        decoderFor[ClubTaken](),
	TypeClubSpawned:      decoderFor[ClubSpawned](),
	TypeHoleUpdate:       decoderFor[HoleUpdate](),
	TypeRequestNewHole:   decoderFor[RequestNewHole](),
	TypeForceSpawnHole:   decoderFor[ForceSpawnHole](),
	TypeHoleSunk:         decoderFor[HoleSunk](),
	TypeSetSpawnPoint:    decoderFor[SetSpawnPoint](),
	TypeSpawnPointUpdate: decoderFor[SpawnPointUpdate](),
	TypeCartOccupancy:    decoderFor[CartOccupancy](),
}

// ---- lobby ----

// HostRoom asks the relay to open a room. An empty RoomID requests a
// generated 4-character code.
type HostRoom struct {
	RoomID string `json:"room_id,omitempty"`
	Token  string `json:"token,omitempty"`
}

func (HostRoom) MessageType() string { return TypeHostRoom }

func (m HostRoom) Validate() error {
	if m.RoomID != "" && !ValidRoomID(NormalizeRoomID(m.RoomID)) {
		return fmt.Errorf("bad room id %q", m.RoomID)
	}
	return nil
}

type JoinRoom struct {
	RoomID string `json:"room_id"`
	Token  string `json:"token,omitempty"`
}

func (JoinRoom) MessageType() string { return TypeJoinRoom }

func (m JoinRoom) Validate() error {
	if !ValidRoomID(NormalizeRoomID(m.RoomID)) {
		return fmt.Errorf("bad room id %q", m.RoomID)
	}
	return nil
}

// CreateRoom is the legacy spelling of HostRoom with a generated code.
type CreateRoom struct{}

func (CreateRoom) MessageType() string { return TypeCreateRoom }

type RoomCreated struct {
	RoomID string `json:"room_id"`
}

func (RoomCreated) MessageType() string { return TypeRoomCreated }

// Joined confirms the role and slot a connection was given.
type Joined struct {
	RoomID string `json:"room_id"`
	Role   Role   `json:"role"`
	Slot   int    `json:"slot"`
}

func (Joined) MessageType() string { return TypeJoined }

func (m Joined) Validate() error {
	if m.Role != RoleHost && m.Role != RoleGuest {
		return fmt.Errorf("bad role %q", m.Role)
	}
	return checkSlot("slot", m.Slot)
}

type IDTaken struct {
	RoomID string `json:"room_id"`
}

func (IDTaken) MessageType() string { return TypeIDTaken }

type RoomFull struct {
	RoomID string `json:"room_id"`
}

func (RoomFull) MessageType() string { return TypeRoomFull }

type ErrorMsg struct {
	Reason string `json:"reason"`
}

func (ErrorMsg) MessageType() string { return TypeErrorMsg }

type AssignPlayer struct {
	Index int `json:"index"`
}

func (AssignPlayer) MessageType() string { return TypeAssignPlayer }

func (m AssignPlayer) Validate() error { return checkSlot("index", m.Index) }

// GuestJoined is the guest's handshake once its connection opens.
type GuestJoined struct {
	Name string `json:"name,omitempty"`
}

func (GuestJoined) MessageType() string { return TypeGuestJoined }

type ParticipantJoined struct {
	Index int `json:"index"`
}

func (ParticipantJoined) MessageType() string { return TypeParticipantJoined }

func (m ParticipantJoined) Validate() error { return checkSlot("index", m.Index) }

type ParticipantLeft struct {
	Index int `json:"index"`
}

func (ParticipantLeft) MessageType() string { return TypeParticipantLeft }

func (m ParticipantLeft) Validate() error { return checkSlot("index", m.Index) }

type HostDisconnected struct{}

func (HostDisconnected) MessageType() string { return TypeHostDisconnected }

type StartGame struct{}

func (StartGame) MessageType() string { return TypeStartGame }

// WorldState is the full layout a newly joined guest needs before the next
// periodic snapshot arrives.
type WorldState struct {
	Items       []Item    `json:"items"`
	Spawn       geom.Vec2 `json:"spawn"`
	Hole        geom.Vec2 `json:"hole"`
	HoleIndex   int       `json:"hole_index"`
	MatchActive bool      `json:"match_active"`
}

func (WorldState) MessageType() string { return TypeWorldState }

func (m WorldState) Validate() error {
	if m.HoleIndex < 0 {
		return fmt.Errorf("hole index %d negative", m.HoleIndex)
	}
	if !m.Spawn.IsFinite() || !m.Hole.IsFinite() {
		return errNonFinite
	}
	return validateItems(m.Items)
}

type CurrentClubs struct {
	Items []Item `json:"items"`
}

func (CurrentClubs) MessageType() string { return TypeCurrentClubs }

func (m CurrentClubs) Validate() error { return validateItems(m.Items) }

func validateItems(items []Item) error {
	for _, it := range items {
		if err := it.validate(); err != nil {
			return err
		}
	}
	return nil
}

// ---- simulation ----

// EntitySnapshot is the transform shared by every synchronized body. ID is
// the roster index, not a generated id.
type EntitySnapshot struct {
	ID    int        `json:"id"`
	Kind  EntityKind `json:"kind"`
	Pos   geom.Vec2  `json:"pos"`
	Vel   geom.Vec2  `json:"vel"`
	Angle float64    `json:"angle"`
}

func (e EntitySnapshot) validate(kind EntityKind, maxID int) error {
	if e.Kind != kind {
		return fmt.Errorf("entity %d: kind %q, want %q", e.ID, e.Kind, kind)
	}
	if e.ID < 0 || e.ID >= maxID {
		return fmt.Errorf("%s id %d out of range", kind, e.ID)
	}
	if !e.Pos.IsFinite() || !e.Vel.IsFinite() || !finite(e.Angle) {
		return fmt.Errorf("%s %d: %w", kind, e.ID, errNonFinite)
	}
	return nil
}

type PlayerSnapshot struct {
	EntitySnapshot
	Human       bool                    `json:"human"`
	Driving     bool                    `json:"driving"`
	DrivingCart int                     `json:"driving_cart"`
	Inventory   [InventorySize]ItemType `json:"inventory"`
	ActiveSlot  int                     `json:"active_slot"`
}

type BallSnapshot struct {
	EntitySnapshot
	Height   float64 `json:"height"`
	InFlight bool    `json:"in_flight"`
}

type CartSnapshot struct {
	EntitySnapshot
	Owner int `json:"owner"`
}

// StateUpdate is the host's batched per-tick snapshot.
type StateUpdate struct {
	Tick        uint64           `json:"tick"`
	Players     []PlayerSnapshot `json:"players"`
	Balls       []BallSnapshot   `json:"balls"`
	Carts       []CartSnapshot   `json:"carts"`
	Hole        geom.Vec2        `json:"hole"`
	HoleIndex   int              `json:"hole_index"`
	MatchActive bool             `json:"match_active"`
}

func (StateUpdate) MessageType() string { return TypeStateUpdate }

func (m StateUpdate) Validate() error {
	if len(m.Players) > MaxSlots || len(m.Balls) > MaxSlots || len(m.Carts) > MaxCarts {
		return errors.New("roster too large")
	}
	for _, p := range m.Players {
		if err := p.validate(KindPlayer, MaxSlots); err != nil {
			return err
		}
		if p.ActiveSlot < 0 || p.ActiveSlot >= InventorySize {
			return fmt.Errorf("player %d: active slot %d", p.ID, p.ActiveSlot)
		}
		if p.Driving && (p.DrivingCart < 0 || p.DrivingCart >= MaxCarts) {
			return fmt.Errorf("player %d: driving cart %d", p.ID, p.DrivingCart)
		}
	}
	for _, b := range m.Balls {
		if err := b.validate(KindBall, MaxSlots); err != nil {
			return err
		}
		if !finite(b.Height) {
			return errNonFinite
		}
	}
	for _, c := range m.Carts {
		if err := c.validate(KindCart, MaxCarts); err != nil {
			return err
		}
		if !validOptionalSlot(c.Owner) {
			return fmt.Errorf("cart %d: owner %d", c.ID, c.Owner)
		}
	}
	if m.HoleIndex < 0 || !m.Hole.IsFinite() {
		return errors.New("bad hole")
	}
	return nil
}

// Input is everything a guest sends about its own player: raw controls.
type Input struct {
	Keys    Keys    `json:"keys"`
	Pointer Pointer `json:"pointer"`
}

func (Input) MessageType() string { return TypeInput }

func (m Input) Validate() error {
	if !finite(m.Pointer.X, m.Pointer.Y) {
		return errNonFinite
	}
	return nil
}

// Pose is a player's self-reported transform on the relay channel.
type Pose struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Angle       float64 `json:"angle"`
	BallX       float64 `json:"ball_x"`
	BallY       float64 `json:"ball_y"`
	AnimState   string  `json:"anim_state,omitempty"`
	Driving     bool    `json:"driving"`
	DrivingCart int     `json:"driving_cart"`
}

func (p Pose) validate() error {
	if !finite(p.X, p.Y, p.Angle, p.BallX, p.BallY) {
		return errNonFinite
	}
	if p.Driving && (p.DrivingCart < 0 || p.DrivingCart >= MaxCarts) {
		return fmt.Errorf("driving cart %d", p.DrivingCart)
	}
	return nil
}

type PlayerInput struct {
	Pose
}

func (PlayerInput) MessageType() string { return TypePlayerInput }

func (m PlayerInput) Validate() error { return m.Pose.validate() }

// PlayerMoved is a PlayerInput rebroadcast with the sender's slot.
type PlayerMoved struct {
	PlayerIndex int `json:"player_index"`
	Pose
}

func (PlayerMoved) MessageType() string { return TypePlayerMoved }

func (m PlayerMoved) Validate() error {
	if err := checkSlot("player_index", m.PlayerIndex); err != nil {
		return err
	}
	return m.Pose.validate()
}

type CartUpdate struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
}

func (CartUpdate) MessageType() string { return TypeCartUpdate }

func (m CartUpdate) Validate() error {
	if m.Index < 0 || m.Index >= MaxCarts {
		return fmt.Errorf("cart index %d out of range", m.Index)
	}
	if !finite(m.X, m.Y, m.Angle, m.VX, m.VY) {
		return errNonFinite
	}
	return nil
}

func (m CartUpdate) Pos() geom.Vec2 { return geom.V(m.X, m.Y) }
func (m CartUpdate) Vel() geom.Vec2 { return geom.V(m.VX, m.VY) }

// ---- world mutations ----

type RequestPickup struct {
	ItemID int `json:"item_id"`
}

func (RequestPickup) MessageType() string { return TypeRequestPickup }

func (m RequestPickup) Validate() error {
	if m.ItemID < 0 {
		return fmt.Errorf("item id %d negative", m.ItemID)
	}
	return nil
}

// RequestSwap trades the club in Slot for ItemID, dropping DroppedName at X,Y.
type RequestSwap struct {
	ItemID      int     `json:"item_id"`
	Slot        int     `json:"slot"`
	DroppedName string  `json:"dropped_name"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

func (RequestSwap) MessageType() string { return TypeRequestSwap }

func (m RequestSwap) Validate() error {
	if m.ItemID < 0 {
		return fmt.Errorf("item id %d negative", m.ItemID)
	}
	if m.Slot < 0 || m.Slot >= InventorySize {
		return fmt.Errorf("slot %d out of range", m.Slot)
	}
	if m.DroppedName == "" {
		return errors.New("dropped name missing")
	}
	if !finite(m.X, m.Y) {
		return errNonFinite
	}
	return nil
}

// ClubTaken resolves a pickup or swap. Clients mutate inventories only on
// receipt of this message.
type ClubTaken struct {
	ItemID      int      `json:"item_id"`
	PlayerIndex int      `json:"player_index"`
	ItemType    ItemType `json:"item_type"`
	Swap        bool     `json:"swap,omitempty"`
	Slot        int      `json:"slot,omitempty"`
	DroppedType string   `json:"dropped_type,omitempty"`
}

func (ClubTaken) MessageType() string { return TypeClubTaken }

func (m ClubTaken) Validate() error {
	if m.ItemID < 0 {
		return fmt.Errorf("item id %d negative", m.ItemID)
	}
	if m.Swap && (m.Slot < 0 || m.Slot >= InventorySize) {
		return fmt.Errorf("slot %d out of range", m.Slot)
	}
	return checkSlot("player_index", m.PlayerIndex)
}

type ClubSpawned struct {
	Item Item `json:"item"`
}

func (ClubSpawned) MessageType() string { return TypeClubSpawned }

func (m ClubSpawned) Validate() error { return m.Item.validate() }

type HoleUpdate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (HoleUpdate) MessageType() string { return TypeHoleUpdate }

func (m HoleUpdate) Validate() error {
	if !finite(m.X, m.Y) {
		return errNonFinite
	}
	return nil
}

type RequestNewHole struct{}

func (RequestNewHole) MessageType() string { return TypeRequestNewHole }

// ForceSpawnHole tells the host to place the next hole.
type ForceSpawnHole struct{}

func (ForceSpawnHole) MessageType() string { return TypeForceSpawnHole }

// HoleSunk travels both ways. Sent by a client, Index is the hole being
// reported; broadcast by the authority, Index is the new current hole.
type HoleSunk struct {
	Index       int `json:"index"`
	PlayerIndex int `json:"player_index"`
}

func (HoleSunk) MessageType() string { return TypeHoleSunk }

func (m HoleSunk) Validate() error {
	if m.Index < 0 {
		return fmt.Errorf("hole index %d negative", m.Index)
	}
	return checkSlot("player_index", m.PlayerIndex)
}

type SetSpawnPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (SetSpawnPoint) MessageType() string { return TypeSetSpawnPoint }

func (m SetSpawnPoint) Validate() error {
	if !finite(m.X, m.Y) {
		return errNonFinite
	}
	return nil
}

type SpawnPointUpdate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (SpawnPointUpdate) MessageType() string { return TypeSpawnPointUpdate }

func (m SpawnPointUpdate) Validate() error {
	if !finite(m.X, m.Y) {
		return errNonFinite
	}
	return nil
}

// CartOccupancy announces who sits in a cart; PlayerIndex NoSlot means empty.
type CartOccupancy struct {
	CartIndex   int `json:"cart_index"`
	PlayerIndex int `json:"player_index"`
}

func (CartOccupancy) MessageType() string { return TypeCartOccupancy }

func (m CartOccupancy) Validate() error {
	if m.CartIndex < 0 || m.CartIndex >= MaxCarts {
		return fmt.Errorf("cart index %d out of range", m.CartIndex)
	}
	if !validOptionalSlot(m.PlayerIndex) {
		return fmt.Errorf("player index %d out of range", m.PlayerIndex)
	}
	return nil
}
