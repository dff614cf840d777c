// File: internal/review/repository.go
package review

import (
	"context"
	"errors"

	"shoe_market_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// errDuplicateReview reports a unique index violation on (seller, reviewer).
var errDuplicateReview = errors.New("review: duplicate seller/reviewer pair")

type Repository interface {
	Create(ctx context.Context, r *Review) error
	Exists(ctx context.Context, sellerID, reviewerID uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Review, error)
	List(ctx context.Context, q ListQuery) ([]Review, int64, error)
	Update(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	SellerStats(ctx context.Context, sellerID uuid.UUID) (*float64, int64, error)
	RecentForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]Review, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) preloader(query *gorm.DB) *gorm.DB {
	return query.Preload("Seller").Preload("Reviewer")
}

func (r *gormRepository) Create(ctx context.Context, rv *Review) error {
	err := r.db.WithContext(ctx).Omit("Seller", "Reviewer").Create(rv).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errDuplicateReview
	}
	return err
}

func (r *gormRepository) Exists(ctx context.Context, sellerID, reviewerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Review{}).
		Where("seller_id = ? AND reviewer_id = ?", sellerID, reviewerID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	var rv Review
	err := r.preloader(r.db.WithContext(ctx)).Where("id = ?", id).First(&rv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Review not found.")
		}
		return nil, err
	}
	return &rv, nil
}

// List returns reviews newest first, optionally filtered by seller or
// reviewer username.
func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]Review, int64, error) {
	query := r.db.WithContext(ctx).Model(&Review{})
	if q.SellerUsername != "" {
		query = query.Where("seller_id IN (?)", r.db.Table("users").Select("id").Where("username = ?", q.SellerUsername))
	}
	if q.ReviewerUsername != "" {
		query = query.Where("reviewer_id IN (?)", r.db.Table("users").Select("id").Where("username = ?", q.ReviewerUsername))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []Review
	err := r.preloader(query).
		Order("created_at DESC").
		Scopes(common.Paginate(q.Page, q.PageSize)).
		Find(&reviews).Error
	return reviews, total, err
}

// Update writes only the mutable columns.
func (r *gormRepository) Update(ctx context.Context, rv *Review) error {
	return r.db.WithContext(ctx).Model(rv).
		Select("Rating", "Comment", "UpdatedAt").
		Updates(rv).Error
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Review{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Review not found.")
	}
	return nil
}

// SellerStats returns the raw average (nil without reviews) and the count.
func (r *gormRepository) SellerStats(ctx context.Context, sellerID uuid.UUID) (*float64, int64, error) {
	var row struct {
		Avg   *float64
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&Review{}).
		Select("AVG(rating) AS avg, COUNT(*) AS count").
		Where("seller_id = ?", sellerID).
		Scan(&row).Error
	if err != nil {
		return nil, 0, err
	}
	return row.Avg, row.Count, nil
}

func (r *gormRepository) RecentForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]Review, error) {
	var reviews []Review
	err := r.db.WithContext(ctx).Preload("Reviewer").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reviews).Error
	return reviews, err
}
