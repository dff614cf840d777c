// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"

	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/listing"
	"shoe_market_backend/internal/platform/database"
	platformElasticsearch "shoe_market_backend/internal/platform/elasticsearch"
	"shoe_market_backend/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	syncShoesCmd := flag.NewFlagSet("sync-shoes", flag.ExitOnError)
	batchSize := syncShoesCmd.Int("batch-size", 100, "Batch size for syncing shoes")
	esRefresh := syncShoesCmd.String("es-refresh", "false", "Elasticsearch refresh policy (true, false, wait_for)")

	if len(os.Args) > 1 && os.Args[1] == "sync-shoes" {
		if err := syncShoesCmd.Parse(os.Args[2:]); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		runShoeSync(*batchSize, *esRefresh)
		return
	}

	startServer()
}

// runShoeSync bulk-loads every shoe into Elasticsearch and exits.
func runShoeSync(batchSize int, esRefresh string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for sync: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger for sync: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := database.NewGORM(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize database for sync", zap.Error(err))
	}
	defer func() { _ = database.CloseGORMDB(db) }()

	esClient, err := platformElasticsearch.NewClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Elasticsearch client for sync", zap.Error(err))
	}
	if esClient == nil {
		appLogger.Fatal("ELASTICSEARCH_URL must be set to sync shoes")
	}

	ctx := context.Background()
	if err := platformElasticsearch.CreateShoesIndexIfNotExists(ctx, esClient, appLogger); err != nil {
		appLogger.Fatal("Failed to create/verify Elasticsearch index before sync", zap.Error(err))
	}

	index := listing.NewESIndex(esClient, appLogger).WithRefresh(esRefresh)
	result, err := index.SyncAll(ctx, listing.NewGORMRepository(db), batchSize)
	if err != nil {
		appLogger.Fatal("Shoe synchronization failed", zap.Error(err))
	}
	if result.Failed > 0 {
		appLogger.Fatal("Some shoes failed to sync", zap.Int("synced", result.Synced), zap.Int("failed", result.Failed))
	}
	appLogger.Info("Shoe synchronization completed successfully.", zap.Int("synced", result.Synced), zap.Int("batches", result.Batches), zap.Int64("pruned", result.Pruned))
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	server, cleanup, err := initializeServer(ctx, cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}
