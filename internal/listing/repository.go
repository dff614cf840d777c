// File: internal/listing/repository.go
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shoe_market_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for listing data operations.
type Repository interface {
	Create(ctx context.Context, shoe *Shoe) error
	FindByID(ctx context.Context, id uuid.UUID) (*Shoe, error)
	Update(ctx context.Context, shoe *Shoe) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, f shoeFilter) ([]Shoe, int64, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	ToggleWishlist(ctx context.Context, userID, shoeID uuid.UUID) (bool, error)
	IsWishlisted(ctx context.Context, userID, shoeID uuid.UUID) (bool, error)
	LikedAmong(ctx context.Context, userID uuid.UUID, shoeIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	Favorites(ctx context.Context, userID uuid.UUID) ([]Shoe, error)
	FindAllForSync(ctx context.Context, offset, limit int) ([]Shoe, error)
	ListUnsold(ctx context.Context) ([]Shoe, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM listing repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// preloader applies common preloads for shoes.
func (r *gormRepository) preloader(query *gorm.DB) *gorm.DB {
	return query.Preload("Seller").
		Preload("Seller.Profile").
		Preload("Gallery", func(db *gorm.DB) *gorm.DB { return db.Order("shoe_images.created_at ASC") })
}

// Create inserts the shoe and its gallery rows in one transaction.
func (r *gormRepository) Create(ctx context.Context, shoe *Shoe) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Seller", "Gallery").Create(shoe).Error; err != nil {
			return fmt.Errorf("failed to create shoe: %w", err)
		}
		for i := range shoe.Gallery {
			shoe.Gallery[i].ShoeID = shoe.ID
			if err := tx.Create(&shoe.Gallery[i]).Error; err != nil {
				return fmt.Errorf("failed to create gallery image: %w", err)
			}
		}
		return nil
	})
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Shoe, error) {
	var shoe Shoe
	err := r.preloader(r.db.WithContext(ctx)).First(&shoe, "shoes.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Shoe not found.")
		}
		return nil, err
	}
	return &shoe, nil
}

// Update writes the mutable columns. seller_id and views are never written here.
func (r *gormRepository) Update(ctx context.Context, shoe *Shoe) error {
	err := r.db.WithContext(ctx).Model(shoe).
		Select("Title", "Slug", "Brand", "Size", "Price", "Currency", "Condition", "Description", "Image", "IsSold", "UpdatedAt").
		Updates(shoe).Error
	if err != nil {
		return fmt.Errorf("failed to update shoe: %w", err)
	}
	return nil
}

// Delete removes the shoe; gallery and wishlist rows cascade.
func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("shoe_id = ?", id).Delete(&ShoeImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("shoe_id = ?", id).Delete(&WishlistEntry{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&Shoe{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return common.ErrNotFound.WithDetails("Shoe not found or already deleted.")
		}
		return nil
	})
}

var sortableColumns = map[string]string{
	"price":      "shoes.price",
	"created_at": "shoes.created_at",
	"views":      "shoes.views",
}

// Search applies filters, sort and pagination in SQL.
func (r *gormRepository) Search(ctx context.Context, f shoeFilter) ([]Shoe, int64, error) {
	var shoes []Shoe
	var totalItems int64

	dbQuery := r.db.WithContext(ctx).Model(&Shoe{})

	// --- Apply Filters ---
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return []Shoe{}, 0, nil
		}
		dbQuery = dbQuery.Where("shoes.id IN ?", f.IDs)
	} else if f.Search != "" {
		term := "%" + strings.ToLower(f.Search) + "%"
		dbQuery = dbQuery.Where("LOWER(shoes.title) LIKE ? OR LOWER(shoes.description) LIKE ? OR LOWER(shoes.brand) LIKE ?", term, term, term)
	}
	if f.Brand != "" {
		dbQuery = dbQuery.Where("LOWER(shoes.brand) LIKE ?", "%"+strings.ToLower(f.Brand)+"%")
	}
	if f.Size != nil {
		dbQuery = dbQuery.Where("shoes.size = ?", *f.Size)
	}
	if f.Condition != "" {
		dbQuery = dbQuery.Where("shoes.condition = ?", f.Condition)
	}
	if f.SellerUsername != "" {
		dbQuery = dbQuery.Where("shoes.seller_id IN (?)", r.db.Table("users").Select("id").Where("username = ?", f.SellerUsername))
	}
	if f.MinPrice != nil {
		dbQuery = dbQuery.Where("shoes.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		dbQuery = dbQuery.Where("shoes.price <= ?", *f.MaxPrice)
	}
	if f.IsSold != nil {
		dbQuery = dbQuery.Where("shoes.is_sold = ?", *f.IsSold)
	}

	if err := dbQuery.Count(&totalItems).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count shoes: %w", err)
	}

	// --- Apply Sorting ---
	sortOrder := "DESC"
	if f.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	column, ok := sortableColumns[f.SortBy]
	if !ok {
		column = "shoes.created_at"
	}
	dbQuery = dbQuery.Order(fmt.Sprintf("%s %s", column, sortOrder))
	if column != "shoes.created_at" {
		dbQuery = dbQuery.Order("shoes.created_at DESC")
	}

	dbQuery = r.preloader(dbQuery).Scopes(common.Paginate(f.Page, f.PageSize))
	if err := dbQuery.Find(&shoes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to search shoes: %w", err)
	}
	return shoes, totalItems, nil
}

// IncrementViews is a single atomic UPDATE so concurrent readers never lose a count.
func (r *gormRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&Shoe{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

// ToggleWishlist flips membership and reports whether the entry now exists.
func (r *gormRepository) ToggleWishlist(ctx context.Context, userID, shoeID uuid.UUID) (bool, error) {
	var added bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND shoe_id = ?", userID, shoeID).Delete(&WishlistEntry{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			added = false
			return nil
		}
		if err := tx.Omit("User", "Shoe").Create(&WishlistEntry{UserID: userID, ShoeID: shoeID}).Error; err != nil {
			return err
		}
		added = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent toggle inserted the same entry first.
		return true, nil
	}
	return added, err
}

func (r *gormRepository) IsWishlisted(ctx context.Context, userID, shoeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&WishlistEntry{}).
		Where("user_id = ? AND shoe_id = ?", userID, shoeID).Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) LikedAmong(ctx context.Context, userID uuid.UUID, shoeIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool)
	if len(shoeIDs) == 0 {
		return liked, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&WishlistEntry{}).
		Where("user_id = ? AND shoe_id IN ?", userID, shoeIDs).
		Pluck("shoe_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// Favorites lists the shoes userID has wishlisted, newest listing first.
func (r *gormRepository) Favorites(ctx context.Context, userID uuid.UUID) ([]Shoe, error) {
	var shoes []Shoe
	err := r.preloader(r.db.WithContext(ctx)).
		Joins("JOIN wishlist_entries ON wishlist_entries.shoe_id = shoes.id").
		Where("wishlist_entries.user_id = ?", userID).
		Order("shoes.created_at DESC").
		Find(&shoes).Error
	return shoes, err
}

// FindAllForSync pages through every shoe in a stable order.
func (r *gormRepository) FindAllForSync(ctx context.Context, offset, limit int) ([]Shoe, error) {
	var shoes []Shoe
	err := r.db.WithContext(ctx).Preload("Seller").
		Order("shoes.created_at ASC, shoes.id ASC").
		Offset(offset).Limit(limit).
		Find(&shoes).Error
	return shoes, err
}

func (r *gormRepository) ListUnsold(ctx context.Context) ([]Shoe, error) {
	var shoes []Shoe
	err := r.db.WithContext(ctx).Select("id", "updated_at").
		Where("is_sold = ?", false).
		Order("created_at DESC").
		Find(&shoes).Error
	return shoes, err
}
