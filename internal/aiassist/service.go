// File: internal/aiassist/service.go
package aiassist

import (
	"context"
	"errors"
	"mime/multipart"
	"time"

	"shoe_market_backend/internal/common"
	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/filestorage"
	platformredis "shoe_market_backend/internal/platform/redis"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BusyMessage is returned with HTTP 200 whenever analysis is unavailable.
const BusyMessage = "AI Service busy or limit reached. Please fill manually."

const rateLimitWindow = time.Hour

// RateLimiter is a fixed-window counter; *platformredis.Client implements it.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, error)
}

// ProvideRateLimiter returns a true nil interface when Redis is disabled.
func ProvideRateLimiter(c *platformredis.Client) RateLimiter {
	if c == nil {
		return nil
	}
	return c
}

// Result is the response body: either the analysis or an error string.
type Result struct {
	*ShoeAnalysis
	Error string `json:"error,omitempty"`
}

type Service interface {
	AnalyzeUpload(ctx context.Context, actor *uuid.UUID, fh *multipart.FileHeader) (*Result, error)
}

// ServiceImplementation validates uploads, applies the per-user limit and
// turns analyzer failures into the busy result.
type ServiceImplementation struct {
	analyzer Analyzer
	limiter  RateLimiter
	limit    int64
	maxBytes int64
	logger   *zap.Logger
}

func NewService(analyzer Analyzer, limiter RateLimiter, cfg *config.Config, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		analyzer: analyzer,
		limiter:  limiter,
		limit:    cfg.AIRateLimitPerHour,
		maxBytes: cfg.MaxUploadMB << 20,
		logger:   logger.Named("AIAssistService"),
	}
}

func (s *ServiceImplementation) AnalyzeUpload(ctx context.Context, actor *uuid.UUID, fh *multipart.FileHeader) (*Result, error) {
	if actor == nil || *actor == uuid.Nil {
		return nil, common.ErrUnauthorized.WithDetails("Authentication credentials were not provided.")
	}
	if fh == nil {
		return nil, common.ErrBadRequest.WithDetails(map[string]string{"image": "No image provided."})
	}
	data, err := filestorage.ReadUpload(fh, s.maxBytes)
	if err != nil {
		if errors.Is(err, filestorage.ErrTooLarge) {
			return nil, common.ErrBadRequest.WithDetails(map[string]string{"image": "The uploaded file is too large."})
		}
		return nil, common.ErrBadRequest.WithDetails(map[string]string{"image": "Could not read the uploaded file."})
	}
	mimeType, _, err := filestorage.SniffImage(data)
	if err != nil {
		return nil, common.ErrBadRequest.WithDetails(map[string]string{"image": "Upload a valid image."})
	}

	if !s.allow(ctx, *actor) {
		return &Result{Error: BusyMessage}, nil
	}

	analysis, err := s.analyzer.Analyze(ctx, data, mimeType)
	if err != nil {
		s.logger.Warn("Shoe analysis failed", zap.String("userID", actor.String()), zap.Error(err))
		return &Result{Error: BusyMessage}, nil
	}
	return &Result{ShoeAnalysis: analysis}, nil
}

// allow fails open when the limiter is disabled or unreachable.
func (s *ServiceImplementation) allow(ctx context.Context, userID uuid.UUID) bool {
	if s.limiter == nil || s.limit <= 0 {
		return true
	}
	ok, err := s.limiter.FixedWindowAllow(ctx, "analyze:"+userID.String(), s.limit, rateLimitWindow)
	if err != nil {
		s.logger.Warn("Rate limiter unavailable, allowing request", zap.Error(err))
		return true
	}
	if !ok {
		s.logger.Info("AI assist rate limit reached", zap.String("userID", userID.String()))
	}
	return ok
}
