package catalog

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository reads the catalog tables.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindActiveBySlug loads an active product and its category. Missing or inactive
// products yield gorm.ErrRecordNotFound.
func (r *Repository) FindActiveBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("slug = ? AND is_active = ?", slug, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns active products matching q.
func (r *Repository) List(ctx context.Context, q Query) ([]models.Product, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Category").
		Where("products.is_active = ?", true)

	if slug := strings.TrimSpace(q.Category); slug != "" {
		tx = tx.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", slug)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		tx = tx.Where("(LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?)", like, like)
	}
	if q.Featured != nil {
		tx = tx.Where("products.is_featured = ?", *q.Featured)
	}

	switch q.Sort {
	case enums.ProductSortPriceAsc:
		tx = tx.Order("products.price ASC")
	case enums.ProductSortPriceDesc:
		tx = tx.Order("products.price DESC")
	case enums.ProductSortName:
		tx = tx.Order("products.name ASC")
	default:
		tx = tx.Order("products.created_at DESC")
	}
	tx = tx.Order("products.slug ASC")

	if q.Limit > 0 {
		tx = tx.Limit(pagination.NormalizeLimit(q.Limit))
	}

	var rows []models.Product
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RatingSummaries aggregates approved reviews per product.
func (r *Repository) RatingSummaries(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]RatingSummary, error) {
	out := make(map[uuid.UUID]RatingSummary, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	type row struct {
		ProductID uuid.UUID
		AvgRating float64
		Count     int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("product_id, AVG(rating) AS avg_rating, COUNT(*) AS count").
		Where("approved = ? AND product_id IN ?", true, productIDs).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rr := range rows {
		out[rr.ProductID] = RatingSummary{
			ProductID:   rr.ProductID,
			AvgRating:   math.Round(rr.AvgRating*10) / 10,
			ReviewCount: rr.Count,
		}
	}
	return out, nil
}

// ListApprovedReviews pages through a product's approved reviews newest first.
func (r *Repository) ListApprovedReviews(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.Review, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	var rows []models.Review
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND approved = ?", productID, true).
		Scopes(pagination.Keyset("", cursor, params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, "", err
	}
	page, next := pagination.Page(rows, params.Limit, func(rv models.Review) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rv.CreatedAt, ID: rv.ID}
	})
	return page, next, nil
}

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
