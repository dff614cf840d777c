// File: internal/aiassist/handler.go
package aiassist

import (
	"errors"
	"net/http"

	"shoe_market_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	router.POST("/analyze-shoe", requireAuth, h.analyzeShoe)
}

// analyzeShoe answers 200 with either the analysis or {"error": ...}.
func (h *Handler) analyzeShoe(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	result, err := h.service.AnalyzeUpload(c.Request.Context(), common.GetActorFromContext(c), fh)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
