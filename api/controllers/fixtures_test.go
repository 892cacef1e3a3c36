package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/preferences"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/session"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubCatalog struct {
	products   map[string]catalog.Product
	categories []catalog.Category
	reviews    map[string][]catalog.Review
	lastQuery  catalog.Query
	lastPage   pagination.Params
	err        error
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{products: map[string]catalog.Product{
		"rose-oil": {Slug: "rose-oil", Name: "Rose Oil", Price: decimal.NewFromInt(120), Images: []string{"/img/rose.jpg"}, Stock: 4},
		"bath-salt": {Slug: "bath-salt", Name: "Bath Salt", Price: decimal.NewFromInt(450), Stock: 10},
	}}
}

func (c *stubCatalog) FindProduct(_ context.Context, slug string) (*catalog.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[slug]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &p, nil
}

func (c *stubCatalog) ListProducts(_ context.Context, q catalog.Query) ([]catalog.Product, error) {
	c.lastQuery = q
	if c.err != nil {
		return nil, c.err
	}
	out := make([]catalog.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	return out, nil
}

func (c *stubCatalog) ListCategories(context.Context) ([]catalog.Category, error) {
	return c.categories, c.err
}

func (c *stubCatalog) ListReviews(_ context.Context, slug string, params pagination.Params) (*catalog.ReviewPage, error) {
	c.lastPage = params
	if c.err != nil {
		return nil, c.err
	}
	if _, ok := c.products[slug]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &catalog.ReviewPage{Reviews: append([]catalog.Review{}, c.reviews[slug]...)}, nil
}

type fixture struct {
	catalog     *stubCatalog
	store       *session.MemoryStore
	cart        cart.Service
	wishlist    wishlist.Service
	preferences preferences.Service
	logg        *logger.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	store := session.NewMemoryStore()
	sessions, err := session.NewSessions(store)
	require.NoError(t, err)

	cat := newStubCatalog()
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Store:   sessions,
		Catalog: cat,
		Policy:  pricing.DefaultPolicy(),
		Logger:  logg,
	})
	require.NoError(t, err)
	wishSvc, err := wishlist.NewService(wishlist.ServiceParams{
		Store:   sessions,
		Catalog: cat,
		Cart:    cartSvc,
		Logger:  logg,
	})
	require.NoError(t, err)
	prefSvc, err := preferences.NewService(sessions, logg)
	require.NoError(t, err)

	return &fixture{
		catalog:     cat,
		store:       store,
		cart:        cartSvc,
		wishlist:    wishSvc,
		preferences: prefSvc,
		logg:        logg,
	}
}

// call routes a single request through a chi router so URL params and the session
// middleware behave as in production.
func call(t *testing.T, method, pattern, target string, h http.HandlerFunc, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(middleware.Session(nil))
	r.MethodFunc(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func sessionHeader(id string) map[string]string {
	return map[string]string{middleware.SessionHeader: id}
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

type apiError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) apiError {
	t.Helper()
	envelope := struct {
		Error apiError `json:"error"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
	return envelope.Error
}
