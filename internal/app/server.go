// File: internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shoe_market_backend/internal/aiassist"
	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/jobs"
	"shoe_market_backend/internal/listing"
	"shoe_market_backend/internal/middleware"
	"shoe_market_backend/internal/notification"
	"shoe_market_backend/internal/platform/metrics"
	"shoe_market_backend/internal/review"
	"shoe_market_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger
	db         *gorm.DB

	// Background work drained on shutdown
	reindexJob *jobs.SearchReindexJob
	dispatcher *notification.Dispatcher
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	authenticator middleware.Authenticator,
	userHandler *user.Handler,
	reviewHandler *review.Handler,
	listingHandler *listing.Handler,
	aiHandler *aiassist.Handler,
	reindexJob *jobs.SearchReindexJob,
	dispatcher *notification.Dispatcher,
	appMetrics *metrics.Metrics,
	db *gorm.DB,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = 32 << 20

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.Metrics(appMetrics))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))

	requireAuth := middleware.RequireAuth()

	// --- Setup Routes ---
	// Operational routes never look at credentials.
	router.GET("/health", healthHandler(db))
	router.GET("/metrics", gin.WrapH(appMetrics.Handler()))
	router.GET("/sitemap.xml", listingHandler.ServeSitemap)
	if dir, ok := localMediaDir(cfg.MediaBucketURL); ok {
		router.Static("/media", dir)
	}

	v1 := router.Group("/api/v1", middleware.Authenticate(authenticator, logger.Named("AuthMiddleware")))
	userHandler.RegisterRoutes(v1, requireAuth)
	reviewHandler.RegisterRoutes(v1, requireAuth)
	listingHandler.RegisterRoutes(v1, requireAuth)
	aiHandler.RegisterRoutes(v1, requireAuth)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		cfg:        cfg,
		logger:     logger,
		db:         db,
		reindexJob: reindexJob,
		dispatcher: dispatcher,
	}, nil
}

// Router exposes the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func corsConfig(cfg *config.Config) cors.Config {
	conf := cors.DefaultConfig()
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = origins
		conf.AllowCredentials = true
	}
	conf.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	conf.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	conf.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	return conf
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "message": "Database unreachable."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Shoe market API is healthy!"})
	}
}

// localMediaDir returns the directory behind a file:// bucket URL so uploads
// can be served by the API itself.
func localMediaDir(bucketURL string) (string, bool) {
	if !strings.HasPrefix(bucketURL, "file://") {
		return "", false
	}
	u, err := url.Parse(bucketURL)
	if err != nil || u.Path == "" {
		return "", false
	}
	return u.Path, true
}

func (s *Server) Start() error {
	if s.reindexJob != nil {
		if err := s.reindexJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start search reindex job", zap.Error(err))
		}
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

// Shutdown stops accepting requests, then drains background work: the cron
// scheduler and queued emails. Connection pools are closed by the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	err := s.httpServer.Shutdown(ctx)

	if s.reindexJob != nil {
		s.reindexJob.Stop()
	}
	if s.dispatcher != nil {
		if drainErr := s.dispatcher.Shutdown(ctx); drainErr != nil {
			s.logger.Warn("Email queue not fully drained", zap.Error(drainErr))
		}
	}
	return err
}
