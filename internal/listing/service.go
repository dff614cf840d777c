// File: internal/listing/service.go
package listing

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"shoe_market_backend/internal/common"
	"shoe_market_backend/internal/config"
	"shoe_market_backend/internal/filestorage"
	"shoe_market_backend/internal/policy"
	"shoe_market_backend/internal/user"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	coverSubDir   = "shoes"
	gallerySubDir = "shoe_gallery"

	msgNoFile       = "No file was submitted."
	msgNotAnImage   = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	msgFileTooLarge = "The uploaded file is too large."
	msgOwnWishlist  = "You cannot wishlist your own item."
)

// Service defines the interface for listing-related business logic.
type Service interface {
	Create(ctx context.Context, actor *uuid.UUID, req CreateShoeRequest, cover *multipart.FileHeader, gallery []*multipart.FileHeader) (*ShoeResponse, error)
	Get(ctx context.Context, actor *uuid.UUID, id uuid.UUID) (*ShoeResponse, error)
	List(ctx context.Context, actor *uuid.UUID, q ShoeSearchQuery) ([]ShoeResponse, *common.Pagination, error)
	Update(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req UpdateShoeRequest, cover *multipart.FileHeader) (*ShoeResponse, error)
	Delete(ctx context.Context, actor *uuid.UUID, id uuid.UUID) error
	ToggleWishlist(ctx context.Context, actor *uuid.UUID, id uuid.UUID) (*WishlistToggleResponse, error)
	Favorites(ctx context.Context, actor *uuid.UUID) ([]ShoeResponse, error)
	Sitemap(ctx context.Context) ([]byte, error)
}

// ServiceImplementation implements the listing Service interface.
type ServiceImplementation struct {
	repo   Repository
	users  user.Repository
	media  filestorage.Store
	index  SearchIndex
	cfg    *config.Config
	logger *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new listing service. index may be nil.
func NewService(repo Repository, users user.Repository, media filestorage.Store, index SearchIndex, cfg *config.Config, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:   repo,
		users:  users,
		media:  media,
		index:  index,
		cfg:    cfg,
		logger: logger.Named("ListingService"),
	}
}

// Create stores the uploads, then inserts the shoe with its gallery. The
// seller is always the caller.
func (s *ServiceImplementation) Create(ctx context.Context, actor *uuid.UUID, req CreateShoeRequest, cover *multipart.FileHeader, gallery []*multipart.FileHeader) (*ShoeResponse, error) {
	if d := policy.CanCreate(actor); !d.Allowed() {
		return nil, d.Err("")
	}
	if err := validateAmounts(req.Size, req.Price); err != nil {
		return nil, err
	}
	if cover == nil {
		return nil, common.NewFieldError("image", msgNoFile)
	}

	shoe := &Shoe{
		SellerID:    *actor,
		Title:       strings.TrimSpace(req.Title),
		Brand:       strings.TrimSpace(req.Brand),
		Size:        *req.Size,
		Price:       *req.Price,
		Currency:    s.currencyOrDefault(req.Currency),
		Condition:   ConditionNew,
		Description: strings.TrimSpace(req.Description),
	}
	if req.Condition != "" {
		shoe.Condition = Condition(req.Condition)
	}
	shoe.Slug = slug.Make(shoe.Title)

	var stored []string
	cleanup := func() {
		for _, url := range stored {
			s.deleteMedia(ctx, url)
		}
	}

	coverURL, err := s.saveImage(ctx, cover, coverSubDir, "image")
	if err != nil {
		return nil, err
	}
	stored = append(stored, coverURL)
	shoe.Image = &coverURL

	for _, fh := range gallery {
		url, err := s.saveImage(ctx, fh, gallerySubDir, "gallery_images")
		if err != nil {
			cleanup()
			return nil, err
		}
		stored = append(stored, url)
		shoe.Gallery = append(shoe.Gallery, ShoeImage{Image: url})
	}

	if err := s.repo.Create(ctx, shoe); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create shoe: %w", err)
	}
	s.logger.Info("Shoe created",
		zap.String("shoeID", shoe.ID.String()),
		zap.String("sellerID", actor.String()),
		zap.Int("galleryImages", len(shoe.Gallery)))

	created, err := s.repo.FindByID(ctx, shoe.ID)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, created)
	resp := ToShoeResponse(created)
	return &resp, nil
}

// Get counts a view unless the viewer is the seller, then reads the shoe.
func (s *ServiceImplementation) Get(ctx context.Context, actor *uuid.UUID, id uuid.UUID) (*ShoeResponse, error) {
	shoe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadListing(actor).Allowed() {
		return nil, common.ErrForbidden
	}
	if actor == nil || *actor != shoe.SellerID {
		if err := s.repo.IncrementViews(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to count view: %w", err)
		}
		if shoe, err = s.repo.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}

	resp := ToShoeResponse(shoe)
	if policy.IsAuthenticated(actor) {
		liked, err := s.repo.IsWishlisted(ctx, *actor, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read wishlist: %w", err)
		}
		resp.Liked = liked
	}
	return &resp, nil
}

// List applies the query filters. Free text goes to the search index when
// one is configured, and to the database otherwise, on index failure, or
// when the index matched more than maxSearchHits shoes.
func (s *ServiceImplementation) List(ctx context.Context, actor *uuid.UUID, q ShoeSearchQuery) ([]ShoeResponse, *common.Pagination, error) {
	f, err := parseFilter(q)
	if err != nil {
		return nil, nil, err
	}
	if f.Search != "" && s.index != nil {
		hits, err := s.index.Search(ctx, f.Search, maxSearchHits)
		switch {
		case err != nil:
			s.logger.Warn("Search index unavailable, falling back to database", zap.Error(err))
		case !hits.Complete:
			// Filtering on a partial id set would hide the remaining matches.
			s.logger.Info("Search matched more shoes than one index page, using the database",
				zap.String("search", f.Search), zap.Int64("matches", hits.Total))
		default:
			f.IDs = hits.IDs
		}
	}

	shoes, total, err := s.repo.Search(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list shoes: %w", err)
	}
	out, err := s.toResponses(ctx, actor, shoes)
	if err != nil {
		return nil, nil, err
	}
	return out, common.NewPagination(total, f.Page, f.PageSize), nil
}

// Update changes the mutable fields. The seller never changes.
func (s *ServiceImplementation) Update(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req UpdateShoeRequest, cover *multipart.FileHeader) (*ShoeResponse, error) {
	shoe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := policy.CanMutateListing(actor, shoe.SellerID); !d.Allowed() {
		return nil, d.Err("You can only edit your own listings.")
	}
	if err := validateAmounts(req.Size, req.Price); err != nil {
		return nil, err
	}

	if req.Title != nil {
		shoe.Title = strings.TrimSpace(*req.Title)
		shoe.Slug = slug.Make(shoe.Title)
	}
	if req.Brand != nil {
		shoe.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.Size != nil {
		shoe.Size = *req.Size
	}
	if req.Price != nil {
		shoe.Price = *req.Price
	}
	if req.Currency != nil {
		shoe.Currency = s.currencyOrDefault(*req.Currency)
	}
	if req.Condition != nil {
		shoe.Condition = Condition(*req.Condition)
	}
	if req.Description != nil {
		shoe.Description = strings.TrimSpace(*req.Description)
	}
	if req.IsSold != nil {
		shoe.IsSold = *req.IsSold
	}

	var oldCover *string
	if cover != nil {
		url, err := s.saveImage(ctx, cover, coverSubDir, "image")
		if err != nil {
			return nil, err
		}
		oldCover = shoe.Image
		shoe.Image = &url
	}

	if err := s.repo.Update(ctx, shoe); err != nil {
		if cover != nil {
			s.deleteMedia(ctx, *shoe.Image)
		}
		return nil, err
	}
	if oldCover != nil {
		s.deleteMedia(ctx, *oldCover)
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, updated)
	resp := ToShoeResponse(updated)
	if liked, err := s.repo.IsWishlisted(ctx, *actor, id); err == nil {
		resp.Liked = liked
	}
	return &resp, nil
}

// Delete removes the shoe and, best-effort, its media and index document.
func (s *ServiceImplementation) Delete(ctx context.Context, actor *uuid.UUID, id uuid.UUID) error {
	shoe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if d := policy.CanMutateListing(actor, shoe.SellerID); !d.Allowed() {
		return d.Err("You can only delete your own listings.")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Shoe deleted", zap.String("shoeID", id.String()), zap.String("sellerID", actor.String()))

	if shoe.Image != nil {
		s.deleteMedia(ctx, *shoe.Image)
	}
	for _, img := range shoe.Gallery {
		s.deleteMedia(ctx, img.Image)
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, id); err != nil {
			s.logger.Warn("Failed to remove shoe from search index", zap.String("shoeID", id.String()), zap.Error(err))
		}
	}
	return nil
}

// ToggleWishlist flips the caller's membership for the shoe.
func (s *ServiceImplementation) ToggleWishlist(ctx context.Context, actor *uuid.UUID, id uuid.UUID) (*WishlistToggleResponse, error) {
	if d := policy.CanCreate(actor); !d.Allowed() {
		return nil, d.Err("")
	}
	shoe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch policy.CanWishlist(actor, shoe.SellerID) {
	case policy.Allow:
	case policy.DenyNotOwner:
		return nil, common.ErrBadRequest.WithMessage(msgOwnWishlist).WithDetails(map[string]string{"detail": msgOwnWishlist})
	default:
		return nil, policy.DenyAnonymous.Err("")
	}

	added, err := s.repo.ToggleWishlist(ctx, *actor, id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle wishlist: %w", err)
	}
	resp := &WishlistToggleResponse{Status: "removed", Liked: added}
	if added {
		resp.Status = "added"
	}
	return resp, nil
}

// Favorites lists the caller's wishlisted shoes, newest listing first.
func (s *ServiceImplementation) Favorites(ctx context.Context, actor *uuid.UUID) ([]ShoeResponse, error) {
	if d := policy.CanCreate(actor); !d.Allowed() {
		return nil, d.Err("")
	}
	shoes, err := s.repo.Favorites(ctx, *actor)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	out := make([]ShoeResponse, 0, len(shoes))
	for i := range shoes {
		resp := ToShoeResponse(&shoes[i])
		resp.Liked = true
		out = append(out, resp)
	}
	return out, nil
}

func (s *ServiceImplementation) toResponses(ctx context.Context, actor *uuid.UUID, shoes []Shoe) ([]ShoeResponse, error) {
	liked := map[uuid.UUID]bool{}
	if policy.IsAuthenticated(actor) && len(shoes) > 0 {
		ids := make([]uuid.UUID, 0, len(shoes))
		for _, shoe := range shoes {
			ids = append(ids, shoe.ID)
		}
		var err error
		if liked, err = s.repo.LikedAmong(ctx, *actor, ids); err != nil {
			return nil, fmt.Errorf("failed to read wishlist: %w", err)
		}
	}
	out := make([]ShoeResponse, 0, len(shoes))
	for i := range shoes {
		resp := ToShoeResponse(&shoes[i])
		resp.Liked = liked[shoes[i].ID]
		out = append(out, resp)
	}
	return out, nil
}

func (s *ServiceImplementation) saveImage(ctx context.Context, fh *multipart.FileHeader, subDir, field string) (string, error) {
	url, err := s.media.SaveUploadedFile(ctx, fh, subDir)
	switch {
	case err == nil:
		return url, nil
	case errors.Is(err, filestorage.ErrUnsupportedType):
		return "", common.NewFieldError(field, msgNotAnImage)
	case errors.Is(err, filestorage.ErrTooLarge):
		return "", common.NewFieldError(field, msgFileTooLarge)
	default:
		return "", fmt.Errorf("failed to store %s: %w", field, err)
	}
}

func (s *ServiceImplementation) deleteMedia(ctx context.Context, url string) {
	if err := s.media.DeleteFile(ctx, url); err != nil {
		s.logger.Warn("Failed to delete media", zap.String("url", url), zap.Error(err))
	}
}

func (s *ServiceImplementation) reindex(ctx context.Context, shoe *Shoe) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, shoe); err != nil {
		s.logger.Warn("Failed to index shoe", zap.String("shoeID", shoe.ID.String()), zap.Error(err))
	}
}

func (s *ServiceImplementation) currencyOrDefault(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return s.cfg.DefaultCurrency
	}
	return currency
}

func validateAmounts(size, price *decimal.Decimal) error {
	fields := map[string]string{}
	if size != nil && !size.IsPositive() {
		fields["size"] = "Ensure this value is greater than 0."
	}
	if size != nil && size.GreaterThanOrEqual(decimal.NewFromInt(1000)) {
		fields["size"] = "Ensure that there are no more than 4 digits in total."
	}
	if price != nil && price.IsNegative() {
		fields["price"] = "Ensure this value is greater than or equal to 0."
	}
	if price != nil && price.GreaterThanOrEqual(decimal.NewFromInt(100000000)) {
		fields["price"] = "Ensure that there are no more than 10 digits in total."
	}
	if len(fields) > 0 {
		return common.NewValidationAPIError(fields)
	}
	return nil
}

// parseFilter validates the numeric query parameters and clamps paging.
func parseFilter(q ShoeSearchQuery) (shoeFilter, error) {
	f := shoeFilter{
		Brand:          strings.TrimSpace(q.Brand),
		Condition:      strings.TrimSpace(q.Condition),
		SellerUsername: strings.TrimSpace(q.SellerUsername),
		IsSold:         q.IsSold,
		Search:         strings.TrimSpace(q.Search),
		SortBy:         q.SortBy,
		SortOrder:      q.SortOrder,
		Page:           q.Page,
		PageSize:       q.PageSize,
	}
	fields := map[string]string{}
	parse := func(name, raw string) *decimal.Decimal {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			fields[name] = "Enter a number."
			return nil
		}
		return &d
	}
	f.Size = parse("size", q.Size)
	f.MinPrice = parse("min_price", q.MinPrice)
	f.MaxPrice = parse("max_price", q.MaxPrice)
	if f.Condition != "" && f.Condition != string(ConditionNew) && f.Condition != string(ConditionUsed) {
		fields["condition"] = fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", f.Condition)
	}
	if len(fields) > 0 {
		return f, common.NewValidationAPIError(fields)
	}

	f.Page, f.PageSize = common.ClampPage(f.Page, f.PageSize)
	return f, nil
}
