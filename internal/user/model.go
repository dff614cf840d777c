// File: internal/user/model.go
package user

import (
	"time"

	"shoe_market_backend/internal/common"

	"github.com/google/uuid"
)

// User is a local account. Credentials live with the identity provider.
type User struct {
	common.BaseModel
	Username    string   `gorm:"type:varchar(255);uniqueIndex;not null"`
	Email       string   `gorm:"type:varchar(255);uniqueIndex;not null"`
	LastLoginAt *time.Time
	Profile     *Profile `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// Profile holds the public, editable part of an account. It is created
// together with its User and never on its own.
type Profile struct {
	common.BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Avatar      *string   `gorm:"type:text"`
	Location    string    `gorm:"type:varchar(100);not null;default:''"`
	PhoneNumber string    `gorm:"type:varchar(20);not null;default:''"`
	IsVerified  bool      `gorm:"not null;default:false"`
}

func (Profile) TableName() string {
	return "profiles"
}

// --- Collaborator contracts ---

// ReviewSnippet is one entry of a profile's recent reviews.
type ReviewSnippet struct {
	ReviewerUsername string    `json:"reviewer_username"`
	Rating           int       `json:"rating"`
	Comment          string    `json:"comment"`
	CreatedAt        time.Time `json:"created_at"`
}

// SellerReviewSummary is the read-time rating aggregate of a seller.
type SellerReviewSummary struct {
	Rating float64
	Count  int64
	Recent []ReviewSnippet
}

// --- DTOs ---

// UpdateProfileRequest is accepted as JSON or multipart form. The avatar file
// travels separately as the "avatar" form file.
type UpdateProfileRequest struct {
	Location    *string `json:"location" form:"location" binding:"omitempty,max=100"`
	PhoneNumber *string `json:"phone_number" form:"phone_number" binding:"omitempty,max=20"`
}

// ProfileResponse is the public view of a seller.
type ProfileResponse struct {
	UserID       uuid.UUID       `json:"user_id"`
	Username     string          `json:"username"`
	Email        string          `json:"email"`
	Avatar       *string         `json:"avatar"`
	Location     string          `json:"location"`
	PhoneNumber  string          `json:"phone_number"`
	IsVerified   bool            `json:"is_verified"`
	SellerRating float64         `json:"seller_rating"`
	ReviewCount  int64           `json:"review_count"`
	ReviewsList  []ReviewSnippet `json:"reviews_list"`
}

// UserResponse is returned to the account owner.
type UserResponse struct {
	ID          uuid.UUID        `json:"id"`
	Username    string           `json:"username"`
	Email       string           `json:"email"`
	CreatedAt   time.Time        `json:"created_at"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	Profile     *ProfileResponse `json:"profile"`
}

// SellerSummary is the compact seller reference embedded in listings and reviews.
type SellerSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Avatar   *string   `json:"avatar,omitempty"`
}

// ToSellerSummary converts a User into its compact form. A nil user gives nil.
func ToSellerSummary(u *User) *SellerSummary {
	if u == nil {
		return nil
	}
	s := &SellerSummary{ID: u.ID, Username: u.Username}
	if u.Profile != nil {
		s.Avatar = u.Profile.Avatar
	}
	return s
}

func toProfileResponse(u *User, summary *SellerReviewSummary) *ProfileResponse {
	resp := &ProfileResponse{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		ReviewsList: []ReviewSnippet{},
	}
	if u.Profile != nil {
		resp.Avatar = u.Profile.Avatar
		resp.Location = u.Profile.Location
		resp.PhoneNumber = u.Profile.PhoneNumber
		resp.IsVerified = u.Profile.IsVerified
	}
	if summary != nil {
		resp.SellerRating = summary.Rating
		resp.ReviewCount = summary.Count
		if summary.Recent != nil {
			resp.ReviewsList = summary.Recent
		}
	}
	return resp
}
