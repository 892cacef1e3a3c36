package newsletter

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists newsletter subscribers keyed by email.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	Create(ctx context.Context, sub *models.NewsletterSubscriber) error
	SetActive(ctx context.Context, sub *models.NewsletterSubscriber, active bool, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	var sub models.NewsletterSubscriber
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) Create(ctx context.Context, sub *models.NewsletterSubscriber) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// SetActive flips the opt-in flag. Unsubscribing stamps unsubscribed_at and
// resubscribing clears it.
func (r *repository) SetActive(ctx context.Context, sub *models.NewsletterSubscriber, active bool, at time.Time) error {
	var unsubscribedAt *time.Time
	if !active {
		unsubscribedAt = &at
	}
	err := r.db.WithContext(ctx).
		Model(&models.NewsletterSubscriber{}).
		Where("id = ?", sub.ID).
		Updates(map[string]any{
			"is_active":       active,
			"unsubscribed_at": unsubscribedAt,
			"updated_at":      at,
		}).Error
	if err != nil {
		return err
	}
	sub.IsActive = active
	sub.UnsubscribedAt = unsubscribedAt
	sub.UpdatedAt = at
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
