package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/playpong/backend/internal/api"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/database"
	"github.com/playpong/backend/internal/game"
	"github.com/playpong/backend/internal/migrations"
	"github.com/playpong/backend/internal/redis"
	"github.com/playpong/backend/internal/stats"
	"github.com/playpong/backend/internal/store"
	"github.com/playpong/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize stats database. The server can run without it; matches are
	// still playable, results just go unrecorded.
	var recorder *stats.Recorder
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Printf("[DB] Stats database unavailable, results will not be recorded: %v", err)
	} else {
		defer db.Close()

		// Run migrations on start if requested
		if os.Getenv("MIGRATE_ON_START") == "true" {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}

		recorder = stats.NewRecorder(db)
	}

	// Initialize Redis. Also optional: without it games live in memory only
	// and do not survive a restart.
	var st game.Store
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Printf("[REDIS] Redis unavailable, running memory-only (no crash recovery): %v", err)
	} else {
		defer rdb.Close()
		st = store.NewRedisStore(rdb, time.Duration(cfg.ReconnectTokenExpiryMinutes)*time.Minute)
	}

	// Initialize the game manager: recovers persisted sessions, then starts
	// the tick driver and the pause timeout sweeper.
	game.InitializeManager(st, recorder, cfg)
	game.Manager.SetNotifier(ws.GameHub)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, recorder, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting PlayPong server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
