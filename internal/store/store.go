// Package store records match history for relay rooms in Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Lyon85/321-Golf/internal/models"
)

var ErrNotFound = errors.New("store: not found")

// Recorder receives room lifecycle events from the relay hub.
type Recorder interface {
	RoomOpened(ctx context.Context, code, hostIdentity string, at time.Time) error
	RoomClosed(ctx context.Context, code, reason string, at time.Time) error
	HoleSunk(ctx context.Context, code string, hole, player int, at time.Time) error
	ItemClaimed(ctx context.Context, code string, itemID int, itemType string, player int, swap bool, at time.Time) error
}

// Store is the sqlx-backed Recorder.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// openRoomID is the newest still-open hosting of code.
const openRoomID = `(SELECT id FROM rooms WHERE code=$1 AND closed_at IS NULL ORDER BY opened_at DESC LIMIT 1)`

func (s *Store) RoomOpened(ctx context.Context, code, hostIdentity string, at time.Time) error {
	ident := sql.NullString{String: hostIdentity, Valid: hostIdentity != ""}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (code, host_identity, opened_at) VALUES ($1, $2, $3)`,
		code, ident, at)
	if err != nil {
		return fmt.Errorf("insert room %s: %w", code, err)
	}
	return nil
}

func (s *Store) RoomClosed(ctx context.Context, code, reason string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rooms SET closed_at=$2, close_reason=$3 WHERE id=`+openRoomID,
		code, at, reason)
	if err != nil {
		return fmt.Errorf("close room %s: %w", code, err)
	}
	return nil
}

func (s *Store) HoleSunk(ctx context.Context, code string, hole, player int, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hole_results (room_id, hole_index, player_index, sunk_at)
		 SELECT id, $2, $3, $4 FROM rooms WHERE id=`+openRoomID,
		code, hole, player, at)
	if err != nil {
		return fmt.Errorf("record hole %d in %s: %w", hole, code, err)
	}
	return nil
}

func (s *Store) ItemClaimed(ctx context.Context, code string, itemID int, itemType string, player int, swap bool, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO item_claims (room_id, item_id, item_type, player_index, swap, claimed_at)
		 SELECT id, $2, $3, $4, $5, $6 FROM rooms WHERE id=`+openRoomID,
		code, itemID, itemType, player, swap, at)
	if err != nil {
		return fmt.Errorf("record claim %d in %s: %w", itemID, code, err)
	}
	return nil
}

// History returns the most recent hosting of code with its holes and claims.
func (s *Store) History(ctx context.Context, code string) (*models.RoomHistory, error) {
	var h models.RoomHistory
	err := s.db.GetContext(ctx, &h.Room,
		`SELECT id, code, host_identity, opened_at, closed_at, close_reason
		 FROM rooms WHERE code=$1 ORDER BY opened_at DESC LIMIT 1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", code, err)
	}
	if err := s.db.SelectContext(ctx, &h.Holes,
		`SELECT id, room_id, hole_index, player_index, sunk_at
		 FROM hole_results WHERE room_id=$1 ORDER BY hole_index`, h.Room.ID); err != nil {
		return nil, fmt.Errorf("load holes for %s: %w", code, err)
	}
	if err := s.db.SelectContext(ctx, &h.Claims,
		`SELECT id, room_id, item_id, item_type, player_index, swap, claimed_at
		 FROM item_claims WHERE room_id=$1 ORDER BY claimed_at`, h.Room.ID); err != nil {
		return nil, fmt.Errorf("load claims for %s: %w", code, err)
	}
	return &h, nil
}

// Recent lists the latest hostings, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.SelectContext(ctx, &rooms,
		`SELECT id, code, host_identity, opened_at, closed_at, close_reason
		 FROM rooms ORDER BY opened_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}
