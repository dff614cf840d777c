// File: internal/review/service.go
package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"shoe_market_backend/internal/common"
	"shoe_market_backend/internal/policy"
	"shoe_market_backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgSelfReview      = "You cannot review your own profile."
	msgDuplicateReview = "You have already reviewed this seller."
	msgRatingRange     = "Ensure this value is between 1 and 5."
	msgSellerRequired  = "This field is required."
)

type Service interface {
	Create(ctx context.Context, actor *uuid.UUID, req CreateReviewRequest) (*ReviewResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*ReviewResponse, error)
	List(ctx context.Context, q ListQuery) ([]ReviewResponse, *common.Pagination, error)
	Update(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req UpdateReviewRequest) (*ReviewResponse, error)
	Delete(ctx context.Context, actor *uuid.UUID, id uuid.UUID) error
	SellerStats(ctx context.Context, sellerID uuid.UUID) (*SellerStats, error)
}

// ServiceImplementation enforces the review integrity rules and also serves
// as the user package's ReviewSummarizer.
type ServiceImplementation struct {
	repo   Repository
	users  user.Repository
	logger *zap.Logger
}

var (
	_ Service               = (*ServiceImplementation)(nil)
	_ user.ReviewSummarizer = (*ServiceImplementation)(nil)
)

func NewService(repo Repository, users user.Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:   repo,
		users:  users,
		logger: logger.Named("ReviewService"),
	}
}

// Create validates, in order: seller exists, not a self review, not a
// duplicate, rating in range. The reviewer is always the caller.
func (s *ServiceImplementation) Create(ctx context.Context, actor *uuid.UUID, req CreateReviewRequest) (*ReviewResponse, error) {
	if d := policy.CanCreate(actor); !d.Allowed() {
		return nil, d.Err("")
	}

	seller, err := s.resolveSeller(ctx, req)
	if err != nil {
		return nil, err
	}
	if seller.ID == *actor {
		return nil, common.NewFieldError("seller", msgSelfReview)
	}
	exists, err := s.repo.Exists(ctx, seller.ID, *actor)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if exists {
		return nil, common.NewFieldError("seller", msgDuplicateReview)
	}
	if err := validateRating(req.Rating); err != nil {
		return nil, err
	}

	rv := &Review{
		SellerID:   seller.ID,
		ReviewerID: *actor,
		Rating:     req.Rating,
		Comment:    strings.TrimSpace(req.Comment),
	}
	if err := s.repo.Create(ctx, rv); err != nil {
		// A concurrent submission won the unique index.
		if errors.Is(err, errDuplicateReview) {
			return nil, common.NewFieldError("seller", msgDuplicateReview)
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.logger.Info("Review created",
		zap.String("reviewID", rv.ID.String()),
		zap.String("sellerID", seller.ID.String()),
		zap.String("reviewerID", actor.String()))
	return s.Get(ctx, rv.ID)
}

func (s *ServiceImplementation) resolveSeller(ctx context.Context, req CreateReviewRequest) (*user.User, error) {
	var (
		seller *user.User
		err    error
		ref    string
	)
	switch {
	case strings.TrimSpace(req.Seller) != "":
		ref = strings.TrimSpace(req.Seller)
		id, parseErr := uuid.Parse(ref)
		if parseErr != nil {
			return nil, common.NewFieldError("seller", fmt.Sprintf("Invalid pk %q - object does not exist.", ref))
		}
		seller, err = s.users.FindByID(ctx, id)
	case strings.TrimSpace(req.SellerUsername) != "":
		ref = strings.TrimSpace(req.SellerUsername)
		seller, err = s.users.FindByUsername(ctx, ref)
	default:
		return nil, common.NewFieldError("seller", msgSellerRequired)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewFieldError("seller", fmt.Sprintf("Invalid pk %q - object does not exist.", ref))
		}
		return nil, fmt.Errorf("failed to resolve seller: %w", err)
	}
	return seller, nil
}

func validateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return common.NewFieldError("rating", msgRatingRange)
	}
	return nil
}

func (s *ServiceImplementation) Get(ctx context.Context, id uuid.UUID) (*ReviewResponse, error) {
	rv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToReviewResponse(rv)
	return &resp, nil
}

func (s *ServiceImplementation) List(ctx context.Context, q ListQuery) ([]ReviewResponse, *common.Pagination, error) {
	q.Page, q.PageSize = common.ClampPage(q.Page, q.PageSize)

	reviews, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	out := make([]ReviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, ToReviewResponse(&reviews[i]))
	}
	return out, common.NewPagination(total, q.Page, q.PageSize), nil
}

// Update changes rating and comment. Seller and reviewer never change.
func (s *ServiceImplementation) Update(ctx context.Context, actor *uuid.UUID, id uuid.UUID, req UpdateReviewRequest) (*ReviewResponse, error) {
	rv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := policy.CanMutateReview(actor, rv.ReviewerID); !d.Allowed() {
		return nil, d.Err("You can only edit your own reviews.")
	}
	if req.Rating != nil {
		if err := validateRating(*req.Rating); err != nil {
			return nil, err
		}
		rv.Rating = *req.Rating
	}
	if req.Comment != nil {
		rv.Comment = strings.TrimSpace(*req.Comment)
	}
	if err := s.repo.Update(ctx, rv); err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *ServiceImplementation) Delete(ctx context.Context, actor *uuid.UUID, id uuid.UUID) error {
	rv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if d := policy.CanMutateReview(actor, rv.ReviewerID); !d.Allowed() {
		return d.Err("You can only delete your own reviews.")
	}
	return s.repo.Delete(ctx, id)
}

// SellerStats is the mean rating rounded to one decimal, 0 without reviews.
func (s *ServiceImplementation) SellerStats(ctx context.Context, sellerID uuid.UUID) (*SellerStats, error) {
	avg, count, err := s.repo.SellerStats(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reviews: %w", err)
	}
	stats := &SellerStats{Count: count}
	if avg != nil && count > 0 {
		stats.Rating = math.Round(*avg*10) / 10
	}
	return stats, nil
}

// SummarizeSeller adds the most recent reviews to SellerStats.
func (s *ServiceImplementation) SummarizeSeller(ctx context.Context, sellerID uuid.UUID, recent int) (*user.SellerReviewSummary, error) {
	stats, err := s.SellerStats(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repo.RecentForSeller(ctx, sellerID, recent)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent reviews: %w", err)
	}
	summary := &user.SellerReviewSummary{
		Rating: stats.Rating,
		Count:  stats.Count,
		Recent: make([]user.ReviewSnippet, 0, len(reviews)),
	}
	for _, rv := range reviews {
		snippet := user.ReviewSnippet{Rating: rv.Rating, Comment: rv.Comment, CreatedAt: rv.CreatedAt}
		if rv.Reviewer != nil {
			snippet.ReviewerUsername = rv.Reviewer.Username
		}
		summary.Recent = append(summary.Recent, snippet)
	}
	return summary, nil
}
