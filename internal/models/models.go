package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Room is one hosting of a room code. Persistent identities reuse their code,
// so a code maps to many rows over time.
type Room struct {
	ID           int64          `db:"id" json:"id"`
	Code         string         `db:"code" json:"code"`
	HostIdentity sql.NullString `db:"host_identity" json:"host_identity,omitempty"`
	OpenedAt     time.Time      `db:"opened_at" json:"opened_at"`
	ClosedAt     sql.NullTime   `db:"closed_at" json:"closed_at,omitempty"`
	CloseReason  sql.NullString `db:"close_reason" json:"close_reason,omitempty"`
}

// HoleResult records who sank each hole of a round.
type HoleResult struct {
	ID          int64     `db:"id" json:"id"`
	RoomID      int64     `db:"room_id" json:"room_id"`
	HoleIndex   int       `db:"hole_index" json:"hole_index"`
	PlayerIndex int       `db:"player_index" json:"player_index"`
	SunkAt      time.Time `db:"sunk_at" json:"sunk_at"`
}

// ItemClaim records a resolved club pickup or swap.
type ItemClaim struct {
	ID          int64     `db:"id" json:"id"`
	RoomID      int64     `db:"room_id" json:"room_id"`
	ItemID      int       `db:"item_id" json:"item_id"`
	ItemType    string    `db:"item_type" json:"item_type"`
	PlayerIndex int       `db:"player_index" json:"player_index"`
	Swap        bool      `db:"swap" json:"swap"`
	ClaimedAt   time.Time `db:"claimed_at" json:"claimed_at"`
}

// RoomHistory is a room row with everything recorded during it.
type RoomHistory struct {
	Room   Room         `json:"room"`
	Holes  []HoleResult `json:"holes"`
	Claims []ItemClaim  `json:"claims"`
}

// AdminAudit represents an audit log entry for admin actions
type AdminAudit struct {
	ID        int             `db:"id" json:"id"`
	IP        string          `db:"ip" json:"ip"`
	Route     string          `db:"route" json:"route"`
	Action    string          `db:"action" json:"action"`
	Details   json.RawMessage `db:"details" json:"details"`
	Success   bool            `db:"success" json:"success"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
