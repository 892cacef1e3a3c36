package catalog

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func openCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Category{}, &models.Product{}, &models.Review{}))
	return conn
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	ointments := models.Category{Slug: "healing-ointments", Name: "Healing Ointments"}
	apparel := models.Category{Slug: "apparel", Name: "Apparel"}
	require.NoError(t, db.Create(&ointments).Error)
	require.NoError(t, db.Create(&apparel).Error)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	products := []models.Product{
		{CategoryID: ointments.ID, Slug: "cannasalve-original", Name: "CannaSalve Original", Description: "Signature healing ointment", Price: decimal.NewFromInt(350), Stock: 50, Images: types.StringList{"/img/cs-001.jpg"}, IsFeatured: true, IsActive: true, CreatedAt: base},
		{CategoryID: ointments.ID, Slug: "cannasalve-extra-strength", Name: "CannaSalve Extra Strength", Description: "Double strength", Price: decimal.NewFromInt(550), Stock: 30, IsFeatured: true, IsActive: true, CreatedAt: base.Add(time.Hour)},
		{CategoryID: apparel.ID, Slug: "hm-classic-tee", Name: "HM Classic Tee", Description: "Premium cotton tee", Price: decimal.NewFromInt(299), Stock: 100, IsActive: true, CreatedAt: base.Add(2 * time.Hour)},
		{CategoryID: apparel.ID, Slug: "hm-retired-cap", Name: "HM Retired Cap", Description: "No longer sold", Price: decimal.NewFromInt(150), IsActive: false, CreatedAt: base.Add(3 * time.Hour)},
	}
	for i := range products {
		require.NoError(t, db.Create(&products[i]).Error)
	}

	reviews := []models.Review{
		{ProductID: products[0].ID, Rating: 5, Comment: "great", AuthorName: "Sarah M.", Approved: true},
		{ProductID: products[0].ID, Rating: 4, Comment: "good", AuthorName: "David K.", Approved: true},
		{ProductID: products[0].ID, Rating: 1, Comment: "pending moderation", AuthorName: "Anon", Approved: false},
	}
	for i := range reviews {
		require.NoError(t, db.Create(&reviews[i]).Error)
	}
}

func newSeededService(t *testing.T) Service {
	t.Helper()
	db := openCatalogDB(t)
	seedCatalog(t, db)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestFindProductReturnsSnapshotFields(t *testing.T) {
	svc := newSeededService(t)

	product, err := svc.FindProduct(context.Background(), "cannasalve-original")
	require.NoError(t, err)
	assert.Equal(t, "CannaSalve Original", product.Name)
	assert.True(t, product.Price.Equal(decimal.NewFromInt(350)))
	assert.Equal(t, "healing-ointments", product.CategorySlug)
	assert.Equal(t, "/img/cs-001.jpg", product.PrimaryImage())
	assert.Equal(t, 2, product.ReviewCount)
	assert.InDelta(t, 4.5, product.AvgRating, 0.001)
	assert.Nil(t, product.ComparePrice)
	assert.True(t, product.InStock)
}

func TestFromModelMarksSoldOut(t *testing.T) {
	p := FromModel(models.Product{Slug: "hm-classic-tee", Stock: 0}, RatingSummary{})
	assert.False(t, p.InStock)
	assert.Equal(t, 0, p.Stock)
}

func TestFindProductNotFound(t *testing.T) {
	svc := newSeededService(t)

	_, err := svc.FindProduct(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	_, err = svc.FindProduct(context.Background(), "hm-retired-cap")
	assert.True(t, IsNotFound(err), "inactive products are hidden")

	_, err = svc.FindProduct(context.Background(), "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListReviewsPagesApprovedOnly(t *testing.T) {
	svc := newSeededService(t)
	ctx := context.Background()

	first, err := svc.ListReviews(ctx, "cannasalve-original", pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, first.Reviews, 1)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListReviews(ctx, "cannasalve-original", pagination.Params{Limit: 1, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Reviews, 1)
	assert.Empty(t, second.NextCursor)

	seen := map[string]bool{first.Reviews[0].AuthorName: true, second.Reviews[0].AuthorName: true}
	assert.Equal(t, map[string]bool{"Sarah M.": true, "David K.": true}, seen)

	empty, err := svc.ListReviews(ctx, "hm-classic-tee", pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, empty.Reviews)
}

func TestListReviewsRejectsUnknownProductAndCursor(t *testing.T) {
	svc := newSeededService(t)
	ctx := context.Background()

	_, err := svc.ListReviews(ctx, "hm-retired-cap", pagination.Params{})
	assert.True(t, IsNotFound(err))

	_, err = svc.ListReviews(ctx, "cannasalve-original", pagination.Params{Cursor: "not-a-cursor"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListProductsFiltersAndSorts(t *testing.T) {
	svc := newSeededService(t)
	ctx := context.Background()

	all, err := svc.ListProducts(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "hm-classic-tee", all[0].Slug, "newest first by default")

	byPrice, err := svc.ListProducts(ctx, Query{Sort: enums.ProductSortPriceAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"hm-classic-tee", "cannasalve-original", "cannasalve-extra-strength"}, slugs(byPrice))

	byPriceDesc, err := svc.ListProducts(ctx, Query{Sort: enums.ProductSortPriceDesc})
	require.NoError(t, err)
	assert.Equal(t, "cannasalve-extra-strength", byPriceDesc[0].Slug)

	apparel, err := svc.ListProducts(ctx, Query{Category: "apparel"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hm-classic-tee"}, slugs(apparel))

	search, err := svc.ListProducts(ctx, Query{Search: "STRENGTH"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cannasalve-extra-strength"}, slugs(search))

	featured := true
	onlyFeatured, err := svc.ListProducts(ctx, Query{Featured: &featured, Sort: enums.ProductSortName})
	require.NoError(t, err)
	assert.Equal(t, []string{"cannasalve-extra-strength", "cannasalve-original"}, slugs(onlyFeatured))
}

func TestListCategories(t *testing.T) {
	svc := newSeededService(t)
	cats, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "apparel", cats[0].Slug)
}

func slugs(products []Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Slug)
	}
	return out
}

type countingLookup struct {
	calls    int32
	delay    time.Duration
	honorCtx bool
	missing  map[string]bool
}

func (l *countingLookup) FindProduct(ctx context.Context, slug string) (*Product, error) {
	atomic.AddInt32(&l.calls, 1)
	if l.delay > 0 {
		if l.honorCtx {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.delay):
			}
		} else {
			time.Sleep(l.delay)
		}
	}
	if l.missing[slug] {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &Product{Slug: slug, Name: "Product " + slug, Price: decimal.NewFromInt(100), Images: []string{"/a.jpg"}}, nil
}

func TestCachedLookupServesRepeatsFromCache(t *testing.T) {
	backend := &countingLookup{}
	cache, err := NewCachedLookup(backend, 8, time.Minute, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		p, err := cache.FindProduct(context.Background(), "hm-classic-tee")
		require.NoError(t, err)
		assert.Equal(t, "hm-classic-tee", p.Slug)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.calls))

	first, _ := cache.FindProduct(context.Background(), "hm-classic-tee")
	first.Images[0] = "/mutated.jpg"
	second, _ := cache.FindProduct(context.Background(), "hm-classic-tee")
	assert.Equal(t, "/a.jpg", second.Images[0], "callers receive copies")
}

func TestCachedLookupExpiresEntries(t *testing.T) {
	backend := &countingLookup{}
	cache, err := NewCachedLookup(backend, 8, time.Minute, nil)
	require.NoError(t, err)

	now := time.Now()
	cache.setClock(func() time.Time { return now })
	_, err = cache.FindProduct(context.Background(), "a")
	require.NoError(t, err)

	cache.setClock(func() time.Time { return now.Add(2 * time.Minute) })
	_, err = cache.FindProduct(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&backend.calls))
}

func TestCachedLookupDoesNotCacheNotFound(t *testing.T) {
	backend := &countingLookup{missing: map[string]bool{"gone": true}}
	cache, err := NewCachedLookup(backend, 8, time.Minute, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := cache.FindProduct(context.Background(), "gone")
		assert.True(t, IsNotFound(err))
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&backend.calls))
}

func TestCachedLookupCollapsesConcurrentMisses(t *testing.T) {
	backend := &countingLookup{delay: 50 * time.Millisecond}
	cache, err := NewCachedLookup(backend, 8, time.Minute, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.FindProduct(context.Background(), "hot")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.calls))
}

func TestCachedLookupSharedLoadSurvivesFirstCallerCancel(t *testing.T) {
	backend := &countingLookup{delay: 100 * time.Millisecond, honorCtx: true}
	cache, err := NewCachedLookup(backend, 8, time.Minute, nil)
	require.NoError(t, err)

	firstCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = cache.FindProduct(firstCtx, "hot")
	}()
	time.Sleep(10 * time.Millisecond)

	var joinedErr error
	go func() {
		defer wg.Done()
		_, joinedErr = cache.FindProduct(context.Background(), "hot")
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	wg.Wait()

	assert.NoError(t, joinedErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.calls))
}

func TestNewCachedLookupValidatesArgs(t *testing.T) {
	_, err := NewCachedLookup(nil, 1, time.Minute, nil)
	assert.Error(t, err)
	_, err = NewCachedLookup(&countingLookup{}, 0, time.Minute, nil)
	assert.Error(t, err)
}
