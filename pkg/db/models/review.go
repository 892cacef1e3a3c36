package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a shopper rating attached to a product. Only approved reviews count
// toward the catalog rating summary.
type Review struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:reviews_product_id_idx"`
	Rating     int       `gorm:"column:rating;not null"`
	Title      *string   `gorm:"column:title"`
	Comment    string    `gorm:"column:comment;not null"`
	AuthorName string    `gorm:"column:author_name;not null"`
	Approved   bool      `gorm:"column:approved;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
