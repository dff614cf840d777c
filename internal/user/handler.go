// File: internal/user/handler.go
package user

import (
	"errors"
	"net/http"

	"shoe_market_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up profile, session and account lifecycle routes.
// requireAuth rejects anonymous callers.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	profiles := router.Group("/profiles")
	{
		profiles.GET("/:username", h.getProfile)
		profiles.PATCH("/:username", requireAuth, h.updateProfile)
	}
	router.GET("/me", requireAuth, h.getMe)
	router.POST("/session", requireAuth, h.startSession)
	router.GET("/delete-emergency/:token", h.emergencyDelete)
}

func (h *Handler) getProfile(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile retrieved successfully.", profile)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("Profile update: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	avatar, err := c.FormFile("avatar")
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), common.GetActorFromContext(c), c.Param("username"), req, avatar)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile updated successfully.", profile)
}

func (h *Handler) getMe(c *gin.Context) {
	me, err := h.service.GetMe(c.Request.Context(), common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User profile retrieved successfully.", me)
}

func (h *Handler) startSession(c *gin.Context) {
	me, err := h.service.StartSession(c.Request.Context(), common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Session started.", me)
}

func (h *Handler) emergencyDelete(c *gin.Context) {
	if err := h.service.DeleteWithEmergencyToken(c.Request.Context(), c.Param("token")); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Account permanently deleted.", nil)
}
