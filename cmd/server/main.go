package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/playmatatu/plinko/internal/admin"
	"github.com/playmatatu/plinko/internal/api"
	"github.com/playmatatu/plinko/internal/config"
	"github.com/playmatatu/plinko/internal/database"
	"github.com/playmatatu/plinko/internal/fairness"
	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/migrations"
	"github.com/playmatatu/plinko/internal/pathstore"
	"github.com/playmatatu/plinko/internal/recording"
	"github.com/playmatatu/plinko/internal/redis"
	"github.com/playmatatu/plinko/internal/service"
	"github.com/playmatatu/plinko/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		log.Println("Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Operator overrides from runtime_config win over env
	if err := admin.ApplyRuntimeConfigToConfig(ctx, db, cfg); err != nil {
		log.Printf("[CONFIG] runtime config not applied: %v", err)
	}

	var tuning *game.TuningFile
	if cfg.TuningFile != "" {
		tuning, err = game.LoadTuningFile(cfg.TuningFile)
		if err != nil {
			log.Fatalf("Failed to load tuning file: %v", err)
		}
		log.Printf("[CONFIG] physics tuning loaded from %s", cfg.TuningFile)
	}

	// Path library
	var backing pathstore.Store
	switch cfg.PathStore {
	case "file":
		backing = pathstore.NewFileStore(cfg.PathLibraryFile)
	default:
		backing = pathstore.NewPostgresStore(db)
	}
	store := pathstore.NewCachedStore(backing, rdb, cfg.PathCacheTTL())
	library := game.NewPathLibrary(cfg.SamplesPerSlot)
	if _, err := pathstore.LoadInto(ctx, store, library); err != nil {
		log.Printf("[PATHS] starting with an empty library: %v", err)
	}

	// Boards and drops
	game.InitializeManager(library, service.PlayerOptions(cfg, tuning))
	game.StartIdleWorker(ctx, game.Manager, cfg.BoardIdleTimeout(), time.Duration(cfg.IdleWorkerPollInterval)*time.Second)

	registry := fairness.NewRegistry(rdb)
	drops := service.NewDropService(game.Manager, registry, db, cfg.MaxBetAmount)

	jobs := recording.NewManager(library, store, rdb, recording.Options{
		Recorder: game.RecorderOptions{
			Workers:      cfg.RecorderWorkers,
			YieldEvery:   cfg.RecorderYieldEvery,
			Tuning:       tuning,
			PersistEvery: cfg.PersistEvery,
		},
		OnEvent: ws.BroadcastRecording,
	})
	defer jobs.Shutdown()

	// Wire Redis and start recording event subscriber in WS layer
	ws.SetRedisClient(rdb)
	ws.StartRecordingEventSubscriber(ctx)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, cfg, api.Deps{
		DB:      db,
		Drops:   drops,
		Library: library,
		Store:   store,
		Jobs:    jobs,
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("Starting Plinko server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
