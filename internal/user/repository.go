// File: internal/user/repository.go
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"shoe_market_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for user data operations.
type Repository interface {
	// Create inserts the user and its Profile in one transaction.
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, profile *Profile) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	// Delete removes the user; dependent rows go with it.
	Delete(ctx context.Context, id uuid.UUID) error
	ListUsernames(ctx context.Context) ([]string, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new user record into the database. GORM saves the Profile
// association inside the same transaction as the user row.
func (r *gormRepository) Create(ctx context.Context, user *User) error {
	user.Email = normalizeEmail(user.Email)
	if user.Profile == nil {
		user.Profile = &Profile{}
	}
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.ErrConflict.WithDetails("User with this email or username already exists.")
		}
		return err
	}
	return nil
}

func (r *gormRepository) findOne(ctx context.Context, notFound string, query string, args ...interface{}) (*User, error) {
	var userModel User
	err := r.db.WithContext(ctx).Preload("Profile").Where(query, args...).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails(notFound)
		}
		return nil, err
	}
	return &userModel, nil
}

// FindByEmail retrieves a user by their email address.
func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "User not found with this email.", "email = ?", normalizeEmail(email))
}

// FindByID retrieves a user by their ID.
func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, "User not found with this ID.", "id = ?", id)
}

// FindByUsername retrieves a user by exact username.
func (r *gormRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, "User not found.", "username = ?", username)
}

func (r *gormRepository) UpdateProfile(ctx context.Context, profile *Profile) error {
	return r.db.WithContext(ctx).Model(profile).
		Select("Avatar", "Location", "PhoneNumber", "UpdatedAt").
		Updates(profile).Error
}

func (r *gormRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// Delete removes the user and profile. Listings, reviews and wishlist rows
// reference users with ON DELETE CASCADE.
func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&Profile{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&User{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return common.ErrNotFound.WithDetails("User not found.")
		}
		return nil
	})
}

func (r *gormRepository) ListUsernames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&User{}).Order("username ASC").Pluck("username", &names).Error
	return names, err
}
