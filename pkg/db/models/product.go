package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Product is a sellable catalog listing addressed by slug.
type Product struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID      uuid.UUID           `gorm:"column:category_id;type:uuid;not null;index:products_category_id_idx"`
	Category        *Category           `gorm:"foreignKey:CategoryID"`
	Slug            string              `gorm:"column:slug;not null;uniqueIndex:products_slug_key"`
	SKU             *string             `gorm:"column:sku"`
	Name            string              `gorm:"column:name;not null"`
	Description     string              `gorm:"column:description;not null;default:''"`
	LongDescription *string             `gorm:"column:long_description"`
	Price           decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	ComparePrice    decimal.NullDecimal `gorm:"column:compare_price;type:numeric(12,2)"`
	Stock           int                 `gorm:"column:stock;not null;default:0"`
	Images          types.StringList    `gorm:"column:images;type:jsonb;not null"`
	IsFeatured      bool                `gorm:"column:is_featured;not null;default:false"`
	IsActive        bool                `gorm:"column:is_active;not null"`
	Weight          *string             `gorm:"column:weight"`
	Dimensions      *string             `gorm:"column:dimensions"`
	Ingredients     *string             `gorm:"column:ingredients"`
	Usage           *string             `gorm:"column:usage"`
	Benefits        *string             `gorm:"column:benefits"`
	Reviews         []Review            `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	if p.Images == nil {
		p.Images = types.StringList{}
	}
	return nil
}
