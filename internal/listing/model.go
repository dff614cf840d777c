// File: internal/listing/model.go
package listing

import (
	"time"

	"shoe_market_backend/internal/common"
	"shoe_market_backend/internal/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Condition string

const (
	ConditionNew  Condition = "New"
	ConditionUsed Condition = "Used"
)

// Shoe is a listing. SellerID is set from the caller on create and never
// changes afterwards.
type Shoe struct {
	common.BaseModel
	SellerID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Seller      *user.User      `gorm:"foreignKey:SellerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Title       string          `gorm:"type:varchar(100);not null"`
	Slug        string          `gorm:"type:varchar(120);not null;index"`
	Brand       string          `gorm:"type:varchar(50);not null;index"`
	Size        decimal.Decimal `gorm:"type:numeric(4,1);not null"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'EUR'"`
	Condition   Condition       `gorm:"type:varchar(10);not null;default:'New'"`
	Description string          `gorm:"type:text;not null;default:''"`
	Image       *string         `gorm:"type:text"`
	Views       int64           `gorm:"not null;default:0"`
	IsSold      bool            `gorm:"not null;default:false;index"`
	Gallery     []ShoeImage     `gorm:"foreignKey:ShoeID;references:ID;constraint:OnDelete:CASCADE;"`
}

func (Shoe) TableName() string {
	return "shoes"
}

// ShoeImage is one gallery attachment of a Shoe.
type ShoeImage struct {
	common.BaseModel
	ShoeID uuid.UUID `gorm:"type:uuid;not null;index"`
	Image  string    `gorm:"type:text;not null"`
}

func (ShoeImage) TableName() string {
	return "shoe_images"
}

// WishlistEntry marks a shoe as liked by a user. Existence is the state.
type WishlistEntry struct {
	common.BaseModel
	UserID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_shoe"`
	User   *user.User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ShoeID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_shoe;index"`
	Shoe   *Shoe      `gorm:"foreignKey:ShoeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (WishlistEntry) TableName() string {
	return "wishlist_entries"
}

// --- DTOs for API ---

// CreateShoeRequest arrives as multipart form (with the "image" and
// "gallery_images" files) or JSON.
type CreateShoeRequest struct {
	Title       string           `json:"title" form:"title" binding:"required,max=100"`
	Brand       string           `json:"brand" form:"brand" binding:"required,max=50"`
	Size        *decimal.Decimal `json:"size" form:"size" binding:"required"`
	Price       *decimal.Decimal `json:"price" form:"price" binding:"required"`
	Currency    string           `json:"currency" form:"currency" binding:"omitempty,len=3,alpha"`
	Condition   string           `json:"condition" form:"condition" binding:"omitempty,oneof=New Used"`
	Description string           `json:"description" form:"description" binding:"omitempty,max=5000"`
}

// UpdateShoeRequest carries the mutable fields. A seller field, if sent, is
// not bound at all.
type UpdateShoeRequest struct {
	Title       *string          `json:"title" form:"title" binding:"omitempty,min=1,max=100"`
	Brand       *string          `json:"brand" form:"brand" binding:"omitempty,min=1,max=50"`
	Size        *decimal.Decimal `json:"size" form:"size"`
	Price       *decimal.Decimal `json:"price" form:"price"`
	Currency    *string          `json:"currency" form:"currency" binding:"omitempty,len=3,alpha"`
	Condition   *string          `json:"condition" form:"condition" binding:"omitempty,oneof=New Used"`
	Description *string          `json:"description" form:"description" binding:"omitempty,max=5000"`
	IsSold      *bool            `json:"is_sold" form:"is_sold"`
}

// ShoeSearchQuery is bound from the query string. Numeric filters stay
// strings until the service validates them.
type ShoeSearchQuery struct {
	Brand          string `form:"brand"`
	Size           string `form:"size"`
	Condition      string `form:"condition"`
	SellerUsername string `form:"seller_username"`
	MinPrice       string `form:"min_price"`
	MaxPrice       string `form:"max_price"`
	IsSold         *bool  `form:"is_sold"`
	Search         string `form:"search"`
	SortBy         string `form:"sort_by" binding:"omitempty,oneof=price created_at views"`
	SortOrder      string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}

// shoeFilter is the validated form of ShoeSearchQuery.
type shoeFilter struct {
	Brand          string
	Size           *decimal.Decimal
	Condition      string
	SellerUsername string
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
	IsSold         *bool
	Search         string
	// IDs restricts results to search-index hits when non-nil.
	IDs       []uuid.UUID
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

type ShoeImageResponse struct {
	ID    uuid.UUID `json:"id"`
	Image string    `json:"image"`
}

type ShoeResponse struct {
	ID             uuid.UUID           `json:"id"`
	Seller         uuid.UUID           `json:"seller"`
	SellerUsername string              `json:"seller_username"`
	SellerAvatar   *string             `json:"seller_avatar,omitempty"`
	Title          string              `json:"title"`
	Slug           string              `json:"slug"`
	Brand          string              `json:"brand"`
	Price          string              `json:"price"`
	Size           string              `json:"size"`
	Currency       string              `json:"currency"`
	Condition      Condition           `json:"condition"`
	Description    string              `json:"description"`
	Image          *string             `json:"image"`
	Gallery        []ShoeImageResponse `json:"gallery"`
	Views          int64               `json:"views"`
	IsSold         bool                `json:"is_sold"`
	Liked          bool                `json:"liked"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// WishlistToggleResponse reports the membership after a toggle.
type WishlistToggleResponse struct {
	Status string `json:"status"`
	Liked  bool   `json:"liked"`
}

// ToShoeResponse converts a Shoe model to its API form. Seller and Gallery
// should be preloaded.
func ToShoeResponse(s *Shoe) ShoeResponse {
	resp := ShoeResponse{
		ID:          s.ID,
		Seller:      s.SellerID,
		Title:       s.Title,
		Slug:        s.Slug,
		Brand:       s.Brand,
		Price:       s.Price.StringFixed(2),
		Size:        s.Size.StringFixed(1),
		Currency:    s.Currency,
		Condition:   s.Condition,
		Description: s.Description,
		Image:       s.Image,
		Gallery:     make([]ShoeImageResponse, 0, len(s.Gallery)),
		Views:       s.Views,
		IsSold:      s.IsSold,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if seller := user.ToSellerSummary(s.Seller); seller != nil {
		resp.SellerUsername = seller.Username
		resp.SellerAvatar = seller.Avatar
	}
	for _, img := range s.Gallery {
		resp.Gallery = append(resp.Gallery, ShoeImageResponse{ID: img.ID, Image: img.Image})
	}
	return resp
}
