package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Lookup resolves a product slug to its current catalog entry.
type Lookup interface {
	FindProduct(ctx context.Context, slug string) (*Product, error)
}

// Service exposes the read side of the catalog.
type Service interface {
	Lookup
	ListProducts(ctx context.Context, q Query) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListReviews(ctx context.Context, slug string, params pagination.Params) (*ReviewPage, error)
}

type repository interface {
	FindActiveBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, q Query) ([]models.Product, error)
	RatingSummaries(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]RatingSummary, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListApprovedReviews(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.Review, string, error)
}

type service struct {
	repo repository
}

// NewService constructs a catalog service instance.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// IsNotFound reports whether err means the slug is not in the active catalog.
func IsNotFound(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeNotFound)
}

func (s *service) FindProduct(ctx context.Context, slug string) (*Product, error) {
	row, err := s.activeProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	ratings, err := s.repo.RatingSummaries(ctx, []uuid.UUID{row.ID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product ratings")
	}
	product := FromModel(*row, ratings[row.ID])
	return &product, nil
}

// ListReviews returns approved reviews for an active product. Pending reviews
// are never listed.
func (s *service) ListReviews(ctx context.Context, slug string, params pagination.Params) (*ReviewPage, error) {
	row, err := s.activeProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListApprovedReviews(ctx, row.ID, params)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	page := &ReviewPage{Reviews: make([]Review, 0, len(rows)), NextCursor: next}
	for _, rv := range rows {
		page.Reviews = append(page.Reviews, Review{
			ID:         rv.ID,
			Rating:     rv.Rating,
			Title:      rv.Title,
			Comment:    rv.Comment,
			AuthorName: rv.AuthorName,
			CreatedAt:  rv.CreatedAt,
		})
	}
	return page, nil
}

func (s *service) activeProduct(ctx context.Context, slug string) (*models.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}
	row, err := s.repo.FindActiveBySlug(ctx, slug)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"slug": slug})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return row, nil
}

func (s *service) ListProducts(ctx context.Context, q Query) ([]Product, error) {
	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	ratings, err := s.repo.RatingSummaries(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product ratings")
	}
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row, ratings[row.ID]))
	}
	return out, nil
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, Category{
			Slug:        row.Slug,
			Name:        row.Name,
			Description: row.Description,
			Image:       row.Image,
		})
	}
	return out, nil
}
