package notification

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, delivery *EmailDelivery) error
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]EmailDelivery, error)
}

// GORMRepository implements the Repository interface using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM email delivery repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

// Create inserts a delivery record.
func (r *GORMRepository) Create(ctx context.Context, delivery *EmailDelivery) error {
	if err := r.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return fmt.Errorf("failed to record email delivery: %w", err)
	}
	return nil
}

// ListByRecipient returns the most recent deliveries to recipient, newest first.
func (r *GORMRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]EmailDelivery, error) {
	var deliveries []EmailDelivery
	err := r.db.WithContext(ctx).
		Where("recipient = ?", recipient).
		Order("created_at DESC").
		Limit(limit).
		Find(&deliveries).Error
	if err != nil {
		return nil, fmt.Errorf("fetching deliveries for %s failed: %w", recipient, err)
	}
	return deliveries, nil
}
