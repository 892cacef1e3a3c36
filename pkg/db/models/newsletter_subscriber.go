package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewsletterSubscriber tracks a marketing email opt-in keyed by email.
type NewsletterSubscriber struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email          string     `gorm:"column:email;not null;uniqueIndex:newsletter_subscribers_email_key"`
	IsActive       bool       `gorm:"column:is_active;not null"`
	UnsubscribedAt *time.Time `gorm:"column:unsubscribed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *NewsletterSubscriber) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
