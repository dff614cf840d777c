// File: internal/listing/handler.go
package listing

import (
	"errors"
	"mime/multipart"
	"net/http"

	"shoe_market_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxMultipartMemory bounds the in-memory part of a listing upload; larger
// parts spill to temp files.
const maxMultipartMemory = 32 << 20

// Handler struct holds dependencies for listing handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new listing handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for listing operations. Reads accept
// anonymous callers; requireAuth guards the rest and ownership is checked
// in the service.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	shoes := router.Group("/shoes")
	{
		shoes.GET("", h.listShoes)
		shoes.GET("/:id", h.getShoe)

		authed := shoes.Group("")
		authed.Use(requireAuth)
		{
			authed.POST("", h.createShoe)
			authed.GET("/favorites", h.favorites)
			authed.PUT("/:id", h.updateShoe)
			authed.PATCH("/:id", h.updateShoe)
			authed.DELETE("/:id", h.deleteShoe)
			authed.POST("/:id/wishlist", h.toggleWishlist)
		}
	}
}

// ServeSitemap renders sitemap.xml. It is mounted at the root, outside /api/v1.
func (h *Handler) ServeSitemap(c *gin.Context) {
	body, err := h.service.Sitemap(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

func (h *Handler) listShoes(c *gin.Context) {
	var q ShoeSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	if q.SellerUsername == "" {
		q.SellerUsername = c.Query("seller__username")
	}
	q.Page, q.PageSize = common.GetPaginationParams(c)

	shoes, pagination, err := h.service.List(c.Request.Context(), common.GetActorFromContext(c), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Shoes retrieved successfully.", shoes, pagination)
}

func (h *Handler) getShoe(c *gin.Context) {
	id, ok := parseShoeID(c)
	if !ok {
		return
	}
	shoe, err := h.service.Get(c.Request.Context(), common.GetActorFromContext(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Shoe retrieved successfully.", shoe)
}

func (h *Handler) createShoe(c *gin.Context) {
	if err := parseMultipart(c); err != nil {
		h.logger.Warn("Create shoe: Failed to parse multipart form", zap.Error(err))
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request format or files too large."))
		return
	}
	var req CreateShoeRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("Create shoe: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	cover, gallery := uploadedFiles(c)
	shoe, err := h.service.Create(c.Request.Context(), common.GetActorFromContext(c), req, cover, gallery)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Shoe created successfully.", shoe)
}

func (h *Handler) updateShoe(c *gin.Context) {
	id, ok := parseShoeID(c)
	if !ok {
		return
	}
	if err := parseMultipart(c); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request format or files too large."))
		return
	}
	var req UpdateShoeRequest
	if err := c.ShouldBind(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	cover, _ := uploadedFiles(c)
	shoe, err := h.service.Update(c.Request.Context(), common.GetActorFromContext(c), id, req, cover)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Shoe updated successfully.", shoe)
}

func (h *Handler) deleteShoe(c *gin.Context) {
	id, ok := parseShoeID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), common.GetActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) toggleWishlist(c *gin.Context) {
	id, ok := parseShoeID(c)
	if !ok {
		return
	}
	result, err := h.service.ToggleWishlist(c.Request.Context(), common.GetActorFromContext(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) favorites(c *gin.Context) {
	shoes, err := h.service.Favorites(c.Request.Context(), common.GetActorFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Favorites retrieved successfully.", shoes)
}

// parseMultipart parses multipart bodies up front; other content types are left alone.
func parseMultipart(c *gin.Context) error {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return nil
	}
	return c.Request.ParseMultipartForm(maxMultipartMemory)
}

// uploadedFiles returns the "image" cover and the "gallery_images" files, if any.
func uploadedFiles(c *gin.Context) (*multipart.FileHeader, []*multipart.FileHeader) {
	form, err := c.MultipartForm()
	if err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			_ = c.Error(err)
		}
		return nil, nil
	}
	var cover *multipart.FileHeader
	if files := form.File["image"]; len(files) > 0 {
		cover = files[0]
	}
	return cover, form.File["gallery_images"]
}

func parseShoeID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid shoe ID format."))
		return uuid.Nil, false
	}
	return id, true
}
