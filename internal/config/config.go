package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Rooms
	RoomMaxGuests   int
	RoomItemCount   int
	WorldWidth      float64
	WorldHeight     float64
	RoomIdleTimeout time.Duration
	IdleWorkerPoll  time.Duration
	RoomStateTTL    time.Duration
	IdentityPrefix  string
	TuningFile      string

	// Security
	JWTSecret      string
	AdminTokenHash string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		Environment: getEnv("APP_ENV", "development"),

		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/golf?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		RoomMaxGuests:   getEnvInt("ROOM_MAX_GUESTS", 1),
		RoomItemCount:   getEnvInt("ROOM_ITEM_COUNT", 60),
		WorldWidth:      float64(getEnvInt("WORLD_WIDTH", 4000)),
		WorldHeight:     float64(getEnvInt("WORLD_HEIGHT", 4000)),
		RoomIdleTimeout: getEnvDuration("ROOM_IDLE_TIMEOUT_SECONDS", 600*time.Second),
		IdleWorkerPoll:  getEnvDuration("IDLE_WORKER_POLL_SECONDS", 15*time.Second),
		RoomStateTTL:    time.Duration(getEnvInt("ROOM_STATE_TTL_MINUTES", 60)) * time.Minute,
		IdentityPrefix:  strings.ToUpper(getEnv("IDENTITY_PREFIX", "GOLF")),
		TuningFile:      getEnv("TUNING_FILE", ""),

		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration reads a whole number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
