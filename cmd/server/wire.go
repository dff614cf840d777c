// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"shoe_market_backend/internal/aiassist"
	"shoe_market_backend/internal/app"
	"shoe_market_backend/internal/auth"
	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/filestorage"
	"shoe_market_backend/internal/firebase"
	"shoe_market_backend/internal/jobs"
	"shoe_market_backend/internal/listing"
	"shoe_market_backend/internal/middleware"
	"shoe_market_backend/internal/notification"
	platformElasticsearch "shoe_market_backend/internal/platform/elasticsearch"
	"shoe_market_backend/internal/platform/metrics"
	"shoe_market_backend/internal/review"
	"shoe_market_backend/internal/user"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(ctx context.Context, cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		provideLogger,
		provideDatabase,
		metrics.New,
		provideRedis,
		platformElasticsearch.NewClient,
		filestorage.NewFileStorageService,
		wire.Bind(new(filestorage.Store), new(*filestorage.FileStorageService)),

		// Identity
		firebase.NewFirebaseService,
		wire.Bind(new(auth.IdentityProvider), new(*firebase.FirebaseService)),
		auth.ProvideUsedLinkStore,
		auth.NewLinkSigner,
		wire.Bind(new(user.LinkVerifier), new(*auth.LinkSigner)),
		wire.Bind(new(notification.LinkIssuer), new(*auth.LinkSigner)),
		auth.NewBridge,
		wire.Bind(new(middleware.Authenticator), new(*auth.Bridge)),

		// Notifications
		notification.NewMailer,
		notification.NewGORMRepository,
		provideDispatcher,
		wire.Bind(new(notification.Queue), new(*notification.Dispatcher)),
		notification.NewService,
		wire.Bind(new(user.Notifier), new(*notification.Service)),

		// Accounts and reviews
		user.NewGORMRepository,
		review.NewGORMRepository,
		review.NewService,
		wire.Bind(new(review.Service), new(*review.ServiceImplementation)),
		wire.Bind(new(user.ReviewSummarizer), new(*review.ServiceImplementation)),
		user.NewService,
		wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
		wire.Bind(new(auth.UserResolver), new(*user.ServiceImplementation)),
		user.NewHandler,
		review.NewHandler,

		// Listings
		provideSearchIndex,
		provideSellerIndex,
		provideReindexer,
		listing.NewGORMRepository,
		listing.NewService,
		wire.Bind(new(listing.Service), new(*listing.ServiceImplementation)),
		listing.NewHandler,
		jobs.NewSearchReindexJob,

		// AI assist
		aiassist.NewGeminiAnalyzer,
		wire.Bind(new(aiassist.Analyzer), new(*aiassist.GeminiAnalyzer)),
		aiassist.ProvideRateLimiter,
		aiassist.NewService,
		wire.Bind(new(aiassist.Service), new(*aiassist.ServiceImplementation)),
		aiassist.NewHandler,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
