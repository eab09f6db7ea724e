package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lyon85/321-Golf/internal/client"
	"github.com/Lyon85/321-Golf/internal/config"
	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/session"
	"github.com/Lyon85/321-Golf/internal/transport"
)

var (
	flagRelay    string
	flagIdentity string
	flagRoom     string
	flagToken    string
	flagPrefix   string
	flagTuning   string
	flagItems    int
	flagDuration time.Duration
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Host or join a room and play until stopped",
	Long: `Host the persistent identity, or join it as a guest when it is already
hosted. A join that fails falls back to hosting a suffixed identity, and a
lost host makes the bot host again.

--room joins or hosts a plain 4-character room code instead.

Examples:
  golfbot play --identity GOLF-7QX2
  golfbot play --room AB12 --duration 5m`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagRelay, "relay", "ws://localhost:8080/api/v1/ws", "Relay websocket URL")
	playCmd.Flags().StringVar(&flagIdentity, "identity", "", "Persistent identity to host or join (default: generated)")
	playCmd.Flags().StringVar(&flagRoom, "room", "", "Room code to play in (overrides --identity)")
	playCmd.Flags().StringVar(&flagToken, "token", "", "Identity token from 'golfbot identity'")
	playCmd.Flags().StringVar(&flagPrefix, "prefix", "GOLF", "Prefix for generated identities")
	playCmd.Flags().StringVar(&flagTuning, "tuning", "", "Netcode tuning YAML file")
	playCmd.Flags().IntVar(&flagItems, "items", 60, "Clubs to scatter when hosting in peer mode")
	playCmd.Flags().DurationVar(&flagDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	tuning, err := config.LoadTuning(flagTuning)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if flagDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flagDuration)
		defer cancel()
	}

	seed := flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	id := protocol.NormalizeRoomID(flagRoom)
	if id == "" {
		id = protocol.NormalizeRoomID(flagIdentity)
	}
	if id == "" {
		id = session.NewIdentity(flagPrefix, rng)
	}
	logger.Info("starting", "identity", id, "relay", flagRelay, "seed", seed)

	broker := &transport.RelayBroker{
		URL:    flagRelay,
		Token:  flagToken,
		Logger: logger.WithPrefix("relay"),
	}
	mgr := session.NewManager(broker, id, tuning.JoinTimeout(), logger.WithPrefix("session"))
	mgr.OnStatus(func(s string) { logger.Info(s) })

	sess, err := mgr.Start(ctx)
	if err != nil {
		return err
	}

	bot := newBot(rng)
	newGame := func(s *session.Session) *client.GameSession {
		g := client.New(s, broker.Relayed(), client.Options{
			Tuning:    tuning,
			ItemCount: flagItems,
			Controls:  bot,
			Rand:      rng,
			Logger:    logger.WithPrefix("game"),
			OnStatus:  func(msg string) { logger.Info(msg) },
		})
		bot.attach(g)
		return g
	}
	game := newGame(sess)

	ticker := time.NewTicker(tuning.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping", "room", game.Session().RoomID, "hole", game.Holes().Index())
			game.Close()
			return nil
		case now := <-ticker.C:
			bot.think(now)
			game.Tick(now)
			if !game.Disconnected() {
				continue
			}
			logger.Warn("session lost", "room", sess.RoomID, "status", game.Status())
			sess, err = mgr.Rehost(ctx, sess)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			game = newGame(sess)
		}
	}
}
