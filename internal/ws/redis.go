package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// EventsChannel carries RoomEvents between relay instances.
	EventsChannel = "room_events"
	// IdleSet scores each room by its last activity (unix seconds).
	IdleSet = "room_idle"

	EventRoomClosed  = "room_closed"
	EventRoomExpired = "room_expired"

	touchEvery = 5 * time.Second
)

func roomStateKey(id string) string { return "room:" + id + ":state" }
func roomHostKey(id string) string  { return "room:" + id + ":host" }

// RoomEvent is published on EventsChannel.
type RoomEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	Reason string `json:"reason,omitempty"`
	At     int64  `json:"at"`
}

// claimIdentity reserves id across relay instances. Without redis only the
// local room table counts.
func (h *Hub) claimIdentity(id string) bool {
	if h.rdb == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok, err := h.rdb.SetNX(ctx, roomHostKey(id), h.now().Unix(), h.cfg.RoomStateTTL).Result()
	if err != nil {
		// Redis down: fall back to the local check rather than refusing
		// every room.
		log.Printf("[WS] SetNX %s failed: %v", roomHostKey(id), err)
		return true
	}
	return ok
}

func (h *Hub) releaseIdentity(id string) {
	if h.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.rdb.Del(ctx, roomHostKey(id), roomStateKey(id)).Err(); err != nil {
		log.Printf("[WS] release %s failed: %v", id, err)
	}
	h.rdb.ZRem(ctx, IdleSet, id)
}

// saveRoomState mirrors the room summary into redis for other instances
// and the admin API.
func (h *Hub) saveRoomState(r *Room) {
	if h.rdb == nil {
		return
	}
	b, err := json.Marshal(r.info())
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.rdb.SetEx(ctx, roomStateKey(r.ID), b, h.cfg.RoomStateTTL).Err(); err != nil {
		log.Printf("[WS] save state %s failed: %v", r.ID, err)
	}
}

// touch records activity in the idle set, at most once per touchEvery.
func (h *Hub) touch(r *Room) {
	if h.rdb == nil {
		return
	}
	now := h.now()
	if now.Sub(r.lastTouch) < touchEvery {
		return
	}
	r.lastTouch = now
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h.rdb.ZAdd(ctx, IdleSet, redis.Z{Score: float64(now.Unix()), Member: r.ID})
	h.rdb.Expire(ctx, roomHostKey(r.ID), h.cfg.RoomStateTTL)
}

func (h *Hub) publish(ev RoomEvent) {
	if h.rdb == nil {
		return
	}
	if ev.At == 0 {
		ev.At = h.now().Unix()
	}
	b, _ := json.Marshal(ev)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.rdb.Publish(ctx, EventsChannel, b).Err(); err != nil {
		log.Printf("[WS] publish %s for %s failed: %v", ev.Type, ev.RoomID, err)
	}
}

// StartEventSubscriber closes local rooms named in room_closed and
// room_expired events from the idle worker or another instance.
func (h *Hub) StartEventSubscriber(ctx context.Context) {
	if h.rdb == nil {
		log.Println("[WS] Redis client not set; room event subscriber not started")
		return
	}

	pubsub := h.rdb.Subscribe(ctx, EventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", EventsChannel)
		for msg := range ch {
			var ev RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[WS] invalid event payload: %v", err)
				continue
			}
			h.applyEvent(ev)
		}
	}()
}

func (h *Hub) applyEvent(ev RoomEvent) {
	switch ev.Type {
	case EventRoomClosed, EventRoomExpired:
		reason := ev.Reason
		if reason == "" {
			reason = ev.Type
		}
		h.do(func() {
			if r, ok := h.rooms[ev.RoomID]; ok {
				h.closeRoom(r, reason)
			}
		})
	default:
		log.Printf("[WS] unknown event type: %s", ev.Type)
	}
}
