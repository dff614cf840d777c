// File: cmd/server/providers.go
package main

import (
	"context"
	"log"
	"time"

	"shoe_market_backend/internal/app"
	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/jobs"
	"shoe_market_backend/internal/listing"
	"shoe_market_backend/internal/notification"
	"shoe_market_backend/internal/platform/database"
	platformElasticsearch "shoe_market_backend/internal/platform/elasticsearch"
	platformlogger "shoe_market_backend/internal/platform/logger"
	"shoe_market_backend/internal/platform/metrics"
	platformredis "shoe_market_backend/internal/platform/redis"
	"shoe_market_backend/internal/user"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dispatcherCleanupTimeout = 10 * time.Second

// provideDatabase opens the database and migrates it when DB_AUTO_MIGRATE is set.
func provideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBAutoMigrate {
		if err := app.Migrate(db); err != nil {
			database.CloseGORMDB(db)
			return nil, nil, err
		}
		logger.Info("Database schema migrated")
	}
	return db, func() {
		if err := database.CloseGORMDB(db); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}, nil
}

// provideRedis connects to REDIS_URL; its cleanup closes the pool.
func provideRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*platformredis.Client, func(), error) {
	client, err := platformredis.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}, nil
}

// provideDispatcher starts the email workers. The server drains them on a
// graceful shutdown; the cleanup covers a failed startup, and is a no-op
// after a drain.
func provideDispatcher(cfg *config.Config, mailer notification.Mailer, repo notification.Repository, m *metrics.Metrics, logger *zap.Logger) (*notification.Dispatcher, func()) {
	d := notification.NewDispatcher(cfg, mailer, repo, m, logger)
	return d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatcherCleanupTimeout)
		defer cancel()
		if err := d.Shutdown(ctx); err != nil {
			logger.Warn("Email dispatcher did not drain during cleanup", zap.Error(err))
		}
	}
}

// provideSellerIndex hands the search index to account deletion. A missing
// index stays a true nil interface.
func provideSellerIndex(index listing.SearchIndex) user.SellerIndex {
	if index == nil {
		return nil
	}
	return index
}

// provideSearchIndex makes sure the shoes index exists before the API uses it.
// A failure there is logged, not fatal: listing search falls back to the database.
func provideSearchIndex(ctx context.Context, client *platformElasticsearch.ESClientWrapper, logger *zap.Logger) listing.SearchIndex {
	if client != nil {
		if err := platformElasticsearch.CreateShoesIndexIfNotExists(ctx, client, logger); err != nil {
			logger.Error("Failed to create Elasticsearch shoes index", zap.Error(err))
		}
	}
	return listing.ProvideSearchIndex(client, logger)
}

// provideReindexer exposes the bulk sync side of the search index to the cron job.
func provideReindexer(index listing.SearchIndex) jobs.Reindexer {
	if es, ok := index.(*listing.ESIndex); ok && es != nil {
		return es
	}
	return nil
}

// provideLogger builds the application logger; its cleanup flushes buffered entries.
func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	appLogger, err := platformlogger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		appLogger.Info("Executing cleanup tasks...")
		if err := appLogger.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}
	return appLogger, cleanup, nil
}
