package cart

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stubStore struct {
	states  map[string]State
	loadErr error
	saveErr error
	saves   int
}

func newStubStore() *stubStore {
	return &stubStore{states: map[string]State{}}
}

func (s *stubStore) LoadCart(_ context.Context, id string) (State, error) {
	if s.loadErr != nil {
		return State{}, s.loadErr
	}
	return s.states[id], nil
}

func (s *stubStore) SaveCart(_ context.Context, id string, state State) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.states[id] = state
	return nil
}

type stubCatalog struct {
	products map[string]catalog.Product
	err      error
}

func (c stubCatalog) FindProduct(_ context.Context, slug string) (*catalog.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[slug]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &p, nil
}

func testCatalog() stubCatalog {
	return stubCatalog{products: map[string]catalog.Product{
		"cannasalve-original": {Slug: "cannasalve-original", Name: "CannaSalve Original", Price: decimal.NewFromInt(350), Images: []string{"/cs.jpg"}},
		"hm-classic-tee":      {Slug: "hm-classic-tee", Name: "HM Classic Tee", Price: decimal.NewFromInt(299)},
	}}
}

func newTestService(t *testing.T, store Store, lookup catalog.Lookup, out *bytes.Buffer) Service {
	t.Helper()
	if out == nil {
		out = &bytes.Buffer{}
	}
	svc, err := NewService(ServiceParams{
		Store:   store,
		Catalog: lookup,
		Policy:  pricing.DefaultPolicy(),
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: out}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected missing store error")
	}
	if _, err := NewService(ServiceParams{Store: newStubStore()}); err == nil {
		t.Fatal("expected missing catalog error")
	}
	if _, err := NewService(ServiceParams{Store: newStubStore(), Catalog: testCatalog()}); err == nil {
		t.Fatal("expected missing logger error")
	}
}

func TestServiceAddProductSnapshotsCatalog(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	svc := newTestService(t, store, testCatalog(), nil)
	ctx := context.Background()

	if _, err := svc.AddProduct(ctx, "sess", "cannasalve-original"); err != nil {
		t.Fatalf("add: %v", err)
	}
	summary, err := svc.AddProduct(ctx, "sess", "hm-classic-tee")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !summary.Subtotal.Equal(decimal.NewFromInt(649)) || !summary.ShippingFee.IsZero() {
		t.Fatalf("unexpected summary %+v", summary)
	}
	stored := store.states["sess"]
	if len(stored.Items) != 2 || stored.Items[0].Image != "/cs.jpg" {
		t.Fatalf("unexpected stored items %+v", stored.Items)
	}
}

func TestServiceAddProductMissingSlugIsLoggedNoop(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	var logs bytes.Buffer
	svc := newTestService(t, store, testCatalog(), &logs)

	summary, err := svc.AddProduct(context.Background(), "sess", "retired-product")
	if err != nil {
		t.Fatalf("missing slug should not surface an error, got %v", err)
	}
	if summary.ItemCount != 0 {
		t.Fatalf("expected empty cart, got %d items", summary.ItemCount)
	}
	if store.saves != 0 {
		t.Fatalf("no-op must not write state, saves=%d", store.saves)
	}
	if !strings.Contains(logs.String(), "retired-product") {
		t.Fatalf("expected skipped slug to be logged, got %q", logs.String())
	}
}

func TestServiceAddProductCatalogFailure(t *testing.T) {
	t.Parallel()

	lookup := stubCatalog{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "load product")}
	svc := newTestService(t, newStubStore(), lookup, nil)
	_, err := svc.AddProduct(context.Background(), "sess", "cannasalve-original")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestServiceQuantityAndRemoval(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	svc := newTestService(t, store, testCatalog(), nil)
	ctx := context.Background()

	if _, err := svc.AddProduct(ctx, "sess", "cannasalve-original"); err != nil {
		t.Fatalf("add: %v", err)
	}
	summary, err := svc.UpdateQuantity(ctx, "sess", "cannasalve-original", 4)
	if err != nil || summary.ItemCount != 4 {
		t.Fatalf("expected 4 items, got %d err=%v", summary.ItemCount, err)
	}
	summary, err = svc.UpdateQuantity(ctx, "sess", "cannasalve-original", 0)
	if err != nil || summary.ItemCount != 0 {
		t.Fatalf("expected removal, got %d err=%v", summary.ItemCount, err)
	}
	if _, err := svc.RemoveItem(ctx, "sess", "cannasalve-original"); err != nil {
		t.Fatalf("removing absent line should not fail: %v", err)
	}
}

func TestServiceDrawerAndClear(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	svc := newTestService(t, store, testCatalog(), nil)
	ctx := context.Background()

	summary, err := svc.SetDrawer(ctx, "sess", DrawerToggle)
	if err != nil || !summary.IsOpen {
		t.Fatalf("toggle should open, got open=%v err=%v", summary.IsOpen, err)
	}
	if _, err := svc.AddProduct(ctx, "sess", "hm-classic-tee"); err != nil {
		t.Fatalf("add: %v", err)
	}
	summary, err = svc.Clear(ctx, "sess")
	if err != nil || summary.ItemCount != 0 || !summary.IsOpen {
		t.Fatalf("clear should keep drawer open, got %+v err=%v", summary, err)
	}
	if _, err := svc.SetDrawer(ctx, "sess", DrawerAction("spin")); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown action, got %v", err)
	}
}

func TestServiceStoreFailuresAreDependencyErrors(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.saveErr = errors.New("redis down")
	svc := newTestService(t, store, testCatalog(), nil)
	if _, err := svc.AddProduct(context.Background(), "sess", "hm-classic-tee"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	store.saveErr = nil
	store.loadErr = errors.New("redis down")
	if _, err := svc.Get(context.Background(), "sess"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if _, err := svc.Get(context.Background(), ""); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank session, got %v", err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	svc := newTestService(t, store, testCatalog(), nil)
	ctx := context.Background()
	if _, err := svc.AddProduct(ctx, "a", "hm-classic-tee"); err != nil {
		t.Fatalf("add: %v", err)
	}
	summary, err := svc.Get(ctx, "b")
	if err != nil || summary.ItemCount != 0 {
		t.Fatalf("session b must not see session a's cart, got %d err=%v", summary.ItemCount, err)
	}
}
