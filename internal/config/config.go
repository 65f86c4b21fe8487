package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Server
	Port        string
	FrontendURL string

	// Stats database
	DatabaseURL string

	// Redis (session shadow state + reconnect tokens)
	RedisURL string

	// Session settings
	ReconnectTokenExpiryMinutes int
	PauseTimeoutMinutes         int
	RecoveryGraceMinutes        int // 0 = fall back to PauseTimeoutMinutes
	WinScore                    int

	// Simulation settings
	TickRateHz         int
	SyncIntervalFrames int

	// Security
	JWTSecret string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Stats database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/playpong?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Session settings
		ReconnectTokenExpiryMinutes: getEnvInt("RECONNECT_TOKEN_EXPIRY_MINUTES", 10),
		PauseTimeoutMinutes:         getEnvInt("PAUSE_TIMEOUT_MINUTES", 10),
		RecoveryGraceMinutes:        getEnvInt("RECOVERY_GRACE_MINUTES", 0),
		WinScore:                    getEnvInt("WIN_SCORE", 5),

		// Simulation settings
		TickRateHz:         getEnvInt("TICK_RATE_HZ", 60),
		SyncIntervalFrames: getEnvInt("SYNC_INTERVAL_FRAMES", 5),

		// Security
		JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
	}
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
