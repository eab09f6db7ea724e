package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Lyon85/321-Golf/internal/api"
	"github.com/Lyon85/321-Golf/internal/config"
	"github.com/Lyon85/321-Golf/internal/database"
	"github.com/Lyon85/321-Golf/internal/identity"
	"github.com/Lyon85/321-Golf/internal/migrations"
	"github.com/Lyon85/321-Golf/internal/redis"
	"github.com/Lyon85/321-Golf/internal/store"
	"github.com/Lyon85/321-Golf/internal/ws"
)

func main() {
	// Initialize configuration (loads .env if present)
	cfg := config.Load()

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		log.Fatalf("Failed to load tuning: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres is optional: without it the relay keeps no match history.
	var db *sqlx.DB
	var rec store.Recorder
	deps := api.Deps{Config: cfg, Tuning: tuning}
	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnStart {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL, os.Getenv("MIGRATIONS_DIR")); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}

		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		st := store.New(db)
		rec = st
		deps.DB = db
		deps.History = st
	} else {
		log.Println("[DB] DATABASE_URL empty, match history disabled")
	}

	// Redis is optional too: a single instance expires idle rooms itself.
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Println("[WS] REDIS_URL empty, running as a single relay instance")
	}

	hub := ws.NewHub(cfg, rdb, rec)
	hub.Verify = func(token string) (string, error) {
		return identity.Parse(cfg.JWTSecret, token)
	}
	go hub.Run(ctx)
	deps.Hub = hub

	hub.StartEventSubscriber(ctx)
	ws.StartIdleWorker(ctx, rdb, cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		if cfg.JWTSecret == "change-me-in-production" {
			log.Println("WARNING: JWT_SECRET is the default value")
		}
	}

	router := gin.Default()
	api.SetupRoutes(router, deps)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("Starting golf relay on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
