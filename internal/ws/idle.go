package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Lyon85/321-Golf/internal/config"
)

// StartIdleWorker expires rooms whose last activity in IdleSet is older than
// RoomIdleTimeout. Expiry is published as room_expired so whichever
// instance holds the room closes it.
func StartIdleWorker(ctx context.Context, rdb *redis.Client, cfg *config.Config) {
	if rdb == nil || cfg == nil {
		log.Println("[IDLE] Redis or config missing; idle worker not started")
		return
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(cfg.IdleWorkerPoll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case <-ticker.C:
				if n := expireRooms(ctx, rdb, cfg.RoomIdleTimeout, time.Now()); n > 0 {
					log.Printf("[IDLE] expired %d rooms", n)
				}
			}
		}
	}()
}

func expireRooms(ctx context.Context, rdb *redis.Client, timeout time.Duration, now time.Time) int {
	cutoff := now.Add(-timeout).Unix()
	members, err := rdb.ZRangeByScore(ctx, IdleSet, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", cutoff)}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch idle rooms: %v", err)
		return 0
	}

	expired := 0
	for _, id := range members {
		// ZRem decides which worker owns the expiry.
		if removed, _ := rdb.ZRem(ctx, IdleSet, id).Result(); removed == 0 {
			continue
		}
		b, _ := json.Marshal(RoomEvent{Type: EventRoomExpired, RoomID: id, Reason: "idle", At: now.Unix()})
		if n, err := rdb.Publish(ctx, EventsChannel, b).Result(); err != nil {
			log.Printf("[IDLE] publish expiry failed: room=%s err=%v", id, err)
		} else {
			log.Printf("[IDLE] published expiry: room=%s subscribers=%d", id, n)
			expired++
		}
	}
	return expired
}
