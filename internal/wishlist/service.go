package wishlist

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Store persists wishlist state per shopper session.
type Store interface {
	LoadWishlist(ctx context.Context, sessionID string) (State, error)
	SaveWishlist(ctx context.Context, sessionID string, state State) error
}

type cartAdder interface {
	Get(ctx context.Context, sessionID string) (cart.Summary, error)
	AddProduct(ctx context.Context, sessionID, slug string) (cart.Summary, error)
}

// ToggleResult reports the membership after a toggle.
type ToggleResult struct {
	Slug       string `json:"slug"`
	InWishlist bool   `json:"in_wishlist"`
}

// View is the wishlist page: saved products that are still in the catalog.
type View struct {
	Slugs    []string          `json:"slugs"`
	Products []catalog.Product `json:"products"`
}

// Service applies wishlist operations against the session's stored wishlist.
type Service interface {
	List(ctx context.Context, sessionID string) (View, error)
	Toggle(ctx context.Context, sessionID, slug string) (ToggleResult, error)
	Remove(ctx context.Context, sessionID, slug string) error
	Clear(ctx context.Context, sessionID string) error
	MoveToCart(ctx context.Context, sessionID, slug string) (cart.Summary, error)
}

// ServiceParams groups the dependencies of the wishlist service.
type ServiceParams struct {
	Store   Store
	Catalog catalog.Lookup
	Cart    cartAdder
	Logger  *logger.Logger
}

type service struct {
	store   Store
	catalog catalog.Lookup
	cart    cartAdder
	logg    *logger.Logger
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, errors.New("wishlist store required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog lookup required")
	}
	if params.Cart == nil {
		return nil, errors.New("cart service required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &service{
		store:   params.Store,
		catalog: params.Catalog,
		cart:    params.Cart,
		logg:    params.Logger,
	}, nil
}

// List enriches saved slugs from the catalog. Slugs the catalog no longer has
// are kept in Slugs but omitted from Products.
func (s *service) List(ctx context.Context, sessionID string) (View, error) {
	w, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	view := View{Slugs: w.Items(), Products: []catalog.Product{}}
	for _, slug := range view.Slugs {
		product, err := s.catalog.FindProduct(ctx, slug)
		if err != nil {
			if catalog.IsNotFound(err) {
				s.logg.Debug(s.logg.WithField(ctx, "slug", slug), "wishlist entry no longer in catalog")
				continue
			}
			return View{}, err
		}
		view.Products = append(view.Products, *product)
	}
	return view, nil
}

// Toggle flips membership. Adding a slug the catalog does not know is a logged
// no-op; removing never consults the catalog so stale entries can be cleared.
func (s *service) Toggle(ctx context.Context, sessionID, slug string) (ToggleResult, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ToggleResult{}, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	w, err := s.load(ctx, sessionID)
	if err != nil {
		return ToggleResult{}, err
	}

	if !w.IsInWishlist(slug) {
		if _, err := s.catalog.FindProduct(ctx, slug); err != nil {
			if catalog.IsNotFound(err) {
				s.logg.Warn(s.logg.WithField(ctx, "slug", slug), "wishlist toggle skipped, product not in catalog")
				return ToggleResult{Slug: slug, InWishlist: false}, nil
			}
			return ToggleResult{}, err
		}
	}

	result := ToggleResult{Slug: slug, InWishlist: w.ToggleItem(slug)}
	if err := s.save(ctx, sessionID, w); err != nil {
		return ToggleResult{}, err
	}
	return result, nil
}

func (s *service) Remove(ctx context.Context, sessionID, slug string) error {
	w, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	w.RemoveItem(slug)
	return s.save(ctx, sessionID, w)
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	w, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	w.Clear()
	return s.save(ctx, sessionID, w)
}

// MoveToCart adds the saved product to the cart and then drops it from the
// wishlist. A slug missing from the catalog leaves both untouched.
func (s *service) MoveToCart(ctx context.Context, sessionID, slug string) (cart.Summary, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return cart.Summary{}, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	w, err := s.load(ctx, sessionID)
	if err != nil {
		return cart.Summary{}, err
	}
	if _, err := s.catalog.FindProduct(ctx, slug); err != nil {
		if catalog.IsNotFound(err) {
			s.logg.Warn(s.logg.WithField(ctx, "slug", slug), "move to cart skipped, product not in catalog")
			return s.cart.Get(ctx, sessionID)
		}
		return cart.Summary{}, err
	}

	summary, err := s.cart.AddProduct(ctx, sessionID, slug)
	if err != nil {
		return cart.Summary{}, err
	}
	w.RemoveItem(slug)
	if err := s.save(ctx, sessionID, w); err != nil {
		return cart.Summary{}, err
	}
	return summary, nil
}

func (s *service) load(ctx context.Context, sessionID string) (*Wishlist, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	state, err := s.store.LoadWishlist(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist")
	}
	return Restore(state), nil
}

func (s *service) save(ctx context.Context, sessionID string, w *Wishlist) error {
	if err := s.store.SaveWishlist(ctx, sessionID, w.State()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wishlist")
	}
	return nil
}
