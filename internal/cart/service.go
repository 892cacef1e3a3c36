package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Store persists cart state per shopper session.
type Store interface {
	LoadCart(ctx context.Context, sessionID string) (State, error)
	SaveCart(ctx context.Context, sessionID string, state State) error
}

// DrawerAction names an open/close transition of the cart drawer.
type DrawerAction string

const (
	DrawerOpen   DrawerAction = "open"
	DrawerClose  DrawerAction = "close"
	DrawerToggle DrawerAction = "toggle"
)

// Service applies one cart operation per call against the session's stored cart.
type Service interface {
	Get(ctx context.Context, sessionID string) (Summary, error)
	AddProduct(ctx context.Context, sessionID, slug string) (Summary, error)
	UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) (Summary, error)
	RemoveItem(ctx context.Context, sessionID, lineID string) (Summary, error)
	Clear(ctx context.Context, sessionID string) (Summary, error)
	SetDrawer(ctx context.Context, sessionID string, action DrawerAction) (Summary, error)
}

// ServiceParams groups the dependencies of the cart service.
type ServiceParams struct {
	Store   Store
	Catalog catalog.Lookup
	Policy  pricing.Policy
	Logger  *logger.Logger
}

type service struct {
	store   Store
	catalog catalog.Lookup
	policy  pricing.Policy
	logg    *logger.Logger
}

// NewService constructs a cart service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, errors.New("cart store required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog lookup required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &service{
		store:   params.Store,
		catalog: params.Catalog,
		policy:  params.Policy,
		logg:    params.Logger,
	}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (Summary, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	return c.Summary(s.policy), nil
}

// AddProduct snapshots the catalog entry for slug into the cart. A slug the
// catalog no longer has is logged and ignored.
func (s *service) AddProduct(ctx context.Context, sessionID, slug string) (Summary, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Summary{}, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}

	product, err := s.catalog.FindProduct(ctx, slug)
	if err != nil {
		if catalog.IsNotFound(err) {
			s.logg.Warn(s.logg.WithField(ctx, "slug", slug), "add to cart skipped, product not in catalog")
			return c.Summary(s.policy), nil
		}
		return Summary{}, err
	}

	if err := c.AddItem(Candidate{
		LineID:      product.Slug,
		ProductSlug: product.Slug,
		Name:        product.Name,
		UnitPrice:   product.Price,
		Image:       product.PrimaryImage(),
	}); err != nil {
		return Summary{}, err
	}
	return s.save(ctx, sessionID, c)
}

func (s *service) UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) (Summary, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) { c.UpdateQuantity(lineID, quantity) })
}

func (s *service) RemoveItem(ctx context.Context, sessionID, lineID string) (Summary, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) { c.RemoveItem(lineID) })
}

func (s *service) Clear(ctx context.Context, sessionID string) (Summary, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) { c.Clear() })
}

func (s *service) SetDrawer(ctx context.Context, sessionID string, action DrawerAction) (Summary, error) {
	var apply func(*Cart)
	switch action {
	case DrawerOpen:
		apply = (*Cart).Open
	case DrawerClose:
		apply = (*Cart).Close
	case DrawerToggle:
		apply = (*Cart).Toggle
	default:
		return Summary{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown drawer action").
			WithDetails(map[string]any{"action": string(action)})
	}
	return s.mutate(ctx, sessionID, apply)
}

func (s *service) mutate(ctx context.Context, sessionID string, fn func(*Cart)) (Summary, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	fn(c)
	return s.save(ctx, sessionID, c)
}

func (s *service) load(ctx context.Context, sessionID string) (*Cart, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	state, err := s.store.LoadCart(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return Restore(state), nil
}

func (s *service) save(ctx context.Context, sessionID string, c *Cart) (Summary, error) {
	if err := s.store.SaveCart(ctx, sessionID, c.State()); err != nil {
		return Summary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return c.Summary(s.policy), nil
}
