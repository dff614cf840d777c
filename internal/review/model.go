// File: internal/review/model.go
package review

import (
	"time"

	"shoe_market_backend/internal/common"
	"shoe_market_backend/internal/user"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is one reviewer's rating of one seller. The pair is unique.
type Review struct {
	common.BaseModel
	SellerID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_seller_reviewer"`
	Seller     *user.User `gorm:"foreignKey:SellerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ReviewerID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_seller_reviewer;index"`
	Reviewer   *user.User `gorm:"foreignKey:ReviewerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Rating     int        `gorm:"not null"`
	Comment    string     `gorm:"type:text;not null;default:''"`
}

func (Review) TableName() string {
	return "reviews"
}

// SellerStats is the read-time aggregate of a seller's reviews.
type SellerStats struct {
	Rating float64 `json:"rating"`
	Count  int64   `json:"count"`
}

// --- DTOs ---

// CreateReviewRequest names the seller either by id or by username.
type CreateReviewRequest struct {
	Seller         string `json:"seller"`
	SellerUsername string `json:"seller_username"`
	Rating         int    `json:"rating"`
	Comment        string `json:"comment" binding:"max=2000"`
}

// UpdateReviewRequest only carries the mutable fields.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment" binding:"omitempty,max=2000"`
}

// ListQuery filters the review list.
type ListQuery struct {
	SellerUsername   string `form:"seller_username"`
	ReviewerUsername string `form:"reviewer_username"`
	Page             int    `form:"page"`
	PageSize         int    `form:"page_size"`
}

type ReviewResponse struct {
	ID               uuid.UUID `json:"id"`
	Seller           uuid.UUID `json:"seller"`
	SellerUsername   string    `json:"seller_username"`
	Reviewer         uuid.UUID `json:"reviewer"`
	ReviewerUsername string    `json:"reviewer_username"`
	Rating           int       `json:"rating"`
	Comment          string    `json:"comment"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func ToReviewResponse(r *Review) ReviewResponse {
	resp := ReviewResponse{
		ID:        r.ID,
		Seller:    r.SellerID,
		Reviewer:  r.ReviewerID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Seller != nil {
		resp.SellerUsername = r.Seller.Username
	}
	if r.Reviewer != nil {
		resp.ReviewerUsername = r.Reviewer.Username
	}
	return resp
}
