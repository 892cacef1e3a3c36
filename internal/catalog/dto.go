package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Product is the read model served to the cart, wishlist and listing pages.
type Product struct {
	ID              uuid.UUID        `json:"id"`
	Slug            string           `json:"slug"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	LongDescription *string          `json:"long_description,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	ComparePrice    *decimal.Decimal `json:"compare_price,omitempty"`
	Images          []string         `json:"images"`
	CategorySlug    string           `json:"category_slug"`
	CategoryName    string           `json:"category_name"`
	Stock           int              `json:"stock"`
	InStock         bool             `json:"in_stock"`
	Featured        bool             `json:"featured"`
	Weight          *string          `json:"weight,omitempty"`
	Dimensions      *string          `json:"dimensions,omitempty"`
	Ingredients     *string          `json:"ingredients,omitempty"`
	Usage           *string          `json:"usage,omitempty"`
	Benefits        *string          `json:"benefits,omitempty"`
	AvgRating       float64          `json:"avg_rating"`
	ReviewCount     int              `json:"review_count"`
	CreatedAt       time.Time        `json:"created_at"`
}

// PrimaryImage returns the first image, or empty when the product has none.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Category is a browsable product grouping.
type Category struct {
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
}

// Review is one approved shopper review as shown under a product.
type Review struct {
	ID         uuid.UUID `json:"id"`
	Rating     int       `json:"rating"`
	Title      *string   `json:"title,omitempty"`
	Comment    string    `json:"comment"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewPage is one page of a product's reviews, newest first.
type ReviewPage struct {
	Reviews    []Review `json:"reviews"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// Query filters and orders the product listing.
type Query struct {
	Category string
	Search   string
	Featured *bool
	Sort     enums.ProductSort
	Limit    int
}

// RatingSummary aggregates approved reviews for one product.
type RatingSummary struct {
	ProductID   uuid.UUID
	AvgRating   float64
	ReviewCount int
}

// FromModel maps a persisted product (with its category preloaded) to the read model.
func FromModel(m models.Product, rating RatingSummary) Product {
	p := Product{
		ID:              m.ID,
		Slug:            m.Slug,
		Name:            m.Name,
		Description:     m.Description,
		LongDescription: m.LongDescription,
		Price:           m.Price,
		Images:          append([]string{}, m.Images...),
		Stock:           m.Stock,
		InStock:         m.Stock > 0,
		Featured:        m.IsFeatured,
		Weight:          m.Weight,
		Dimensions:      m.Dimensions,
		Ingredients:     m.Ingredients,
		Usage:           m.Usage,
		Benefits:        m.Benefits,
		AvgRating:       rating.AvgRating,
		ReviewCount:     rating.ReviewCount,
		CreatedAt:       m.CreatedAt,
	}
	if m.ComparePrice.Valid {
		compare := m.ComparePrice.Decimal
		p.ComparePrice = &compare
	}
	if m.Category != nil {
		p.CategorySlug = m.Category.Slug
		p.CategoryName = m.Category.Name
	}
	return p
}
