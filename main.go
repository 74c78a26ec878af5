package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"roster-server-go/config"
	"roster-server-go/db"
	"roster-server-go/handlers"
)

func main() {
	// Load .env (non-fatal if missing)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer closer.Close()

	recordService := db.NewRecordService(store)

	// Make sure all three collections exist before serving
	if err := recordService.InitializeStorage(ctx); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if cfg.SeedDemo {
		if err := recordService.SeedDemoData(ctx); err != nil {
			log.Printf("Warning: could not seed demo data: %v", err)
		}
	}

	apiHandler := handlers.NewAPIHandler(recordService)

	gin.SetMode(cfg.GinMode)
	router := gin.Default()
	apiHandler.RegisterRoutes(router)

	log.Printf("Starting server on %s (store: %s)", cfg.Addr(), cfg.StoreDriver)
	if err := router.Run(cfg.Addr()); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the configured storage backend
func openStore(ctx context.Context, cfg *config.Config) (db.Store, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.DriverRedis:
		client, err := db.InitializeRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return db.NewRedisStore(client, cfg.RedisKeyPrefix), client, nil
	case config.DriverSQLite:
		store, err := db.OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Using SQLite store at %s", cfg.SQLitePath)
		return store, store, nil
	case config.DriverMemory:
		log.Println("Using in-memory store; data is lost on restart")
		return db.NewMemoryStore(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
