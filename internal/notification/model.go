package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmailKind identifies which lifecycle email was attempted.
type EmailKind string

const (
	KindWelcome    EmailKind = "welcome"
	KindLoginAlert EmailKind = "login_alert"
)

// DeliveryStatus is the outcome of one send attempt.
type DeliveryStatus string

const (
	StatusSent   DeliveryStatus = "sent"
	StatusFailed DeliveryStatus = "failed"
)

// EmailDelivery is an audit row written after each send attempt. It is a
// record of outcomes, not a queue: nothing is ever retried from it.
type EmailDelivery struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Recipient string         `gorm:"type:varchar(255);not null;index" json:"recipient"`
	Kind      EmailKind      `gorm:"type:varchar(32);not null" json:"kind"`
	Status    DeliveryStatus `gorm:"type:varchar(16);not null" json:"status"`
	Error     string         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (EmailDelivery) TableName() string {
	return "email_deliveries"
}

func (d *EmailDelivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Message is a rendered email ready for a Mailer.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}
