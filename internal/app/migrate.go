// File: internal/app/migrate.go
package app

import (
	"shoe_market_backend/internal/listing"
	"shoe_market_backend/internal/notification"
	"shoe_market_backend/internal/platform/database"
	"shoe_market_backend/internal/review"
	"shoe_market_backend/internal/user"

	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&user.Profile{},
		&listing.Shoe{},
		&listing.ShoeImage{},
		&listing.WishlistEntry{},
		&review.Review{},
		&notification.EmailDelivery{},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return database.AutoMigrate(db, Models()...)
}
