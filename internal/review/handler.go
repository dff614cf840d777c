// File: internal/review/handler.go
package review

import (
	"shoe_market_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts /reviews. Reads are public.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	reviews := router.Group("/reviews")
	{
		reviews.GET("", h.listReviews)
		reviews.POST("", requireAuth, h.createReview)
		reviews.GET("/:id", h.getReview)
		reviews.PATCH("/:id", requireAuth, h.updateReview)
		reviews.DELETE("/:id", requireAuth, h.deleteReview)
	}
}

func (h *Handler) listReviews(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	if q.SellerUsername == "" {
		q.SellerUsername = c.Query("seller__username")
	}
	q.Page, q.PageSize = common.GetPaginationParams(c)

	reviews, pagination, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Reviews retrieved successfully.", reviews, pagination)
}

func (h *Handler) createReview(c *gin.Context) {
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create review: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	rv, err := h.service.Create(c.Request.Context(), common.GetActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Review created successfully.", rv)
}

func (h *Handler) getReview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rv, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Review retrieved successfully.", rv)
}

func (h *Handler) updateReview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	rv, err := h.service.Update(c.Request.Context(), common.GetActorFromContext(c), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Review updated successfully.", rv)
}

func (h *Handler) deleteReview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), common.GetActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid review ID format."))
		return uuid.Nil, false
	}
	return id, true
}
