package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func openOrdersDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.OutboxEvent{}))
	return conn
}

type gormTx struct {
	db *gorm.DB
}

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type memCarts struct {
	states map[string]cart.State
}

func newMemCarts() *memCarts {
	return &memCarts{states: map[string]cart.State{}}
}

func (m *memCarts) LoadCart(_ context.Context, id string) (cart.State, error) {
	return m.states[id], nil
}

func (m *memCarts) SaveCart(_ context.Context, id string, state cart.State) error {
	m.states[id] = state
	return nil
}

func (m *memCarts) fill(t *testing.T, id string, lines ...cart.Candidate) {
	t.Helper()
	c := cart.New()
	for _, line := range lines {
		require.NoError(t, c.AddItem(line))
	}
	c.Open()
	m.states[id] = c.State()
}

type failingRepo struct {
	Repository
}

func (f failingRepo) WithTx(*gorm.DB) Repository {
	return f
}

func (f failingRepo) Create(context.Context, *models.Order) error {
	return errors.New("connection reset by peer")
}

// racyRepo hides the first idempotency lookup, as if a concurrent request
// committed between the lookup and the insert.
type racyRepo struct {
	Repository
	lookups int
}

func (r *racyRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.Repository.FindByIdempotencyKey(ctx, key)
}

type fixture struct {
	db      *gorm.DB
	carts   *memCarts
	metrics *metrics.CheckoutMetrics
	reg     *prometheus.Registry
	logs    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	reg := prometheus.NewRegistry()
	return &fixture{
		db:      openOrdersDB(t),
		carts:   newMemCarts(),
		metrics: metrics.NewCheckoutMetrics(reg),
		reg:     reg,
		logs:    &bytes.Buffer{},
	}
}

func (f *fixture) service(t *testing.T, repo Repository) Service {
	t.Helper()
	if repo == nil {
		repo = NewRepository(f.db)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: f.logs})
	svc, err := NewService(ServiceParams{
		Tx:      gormTx{db: f.db},
		Repo:    repo,
		Carts:   f.carts,
		Outbox:  outbox.NewService(outbox.NewRepository(f.db), logg),
		Policy:  pricing.DefaultPolicy(),
		Metrics: f.metrics,
		Logger:  logg,
		Clock:   func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc
}

func storefrontLines() []cart.Candidate {
	return []cart.Candidate{
		{LineID: "cannasalve-original", Name: "CannaSalve Original", UnitPrice: decimal.NewFromInt(350)},
		{LineID: "hm-classic-tee", Name: "HM Classic Tee", UnitPrice: decimal.NewFromInt(299)},
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}

func TestPlaceOrderPersistsAndClearsCart(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)
	f.carts.fill(t, "sess", storefrontLines()...)

	placement, err := svc.PlaceOrder(context.Background(), "sess", CheckoutInput{
		Form:           validForm(),
		PaymentMethod:  "cod",
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.False(t, placement.Replayed)
	assert.Equal(t, enums.OrderStatusConfirmed, placement.Order.Status)
	assert.True(t, placement.Order.Total.Equal(decimal.NewFromInt(649)))
	assert.Equal(t, "R 649.00", placement.Order.TotalDisplay)
	require.Len(t, placement.Order.Items, 2)
	assert.Equal(t, "cannasalve-original", placement.Order.Items[0].ProductSlug)

	after := f.carts.states["sess"]
	assert.Empty(t, after.Items)
	assert.True(t, after.IsOpen, "clearing the cart keeps the drawer state")

	var events []models.OutboxEvent
	require.NoError(t, f.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)
	assert.Equal(t, placement.Order.ID, events[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	assert.Contains(t, string(envelope.Data), placement.Order.OrderNumber)

	assert.Equal(t, 1.0, f.attempts(t, "cod", metrics.OutcomeSuccess))
}

func (f *fixture) attempts(t *testing.T, method, outcome string) float64 {
	t.Helper()
	families, err := f.reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != "checkout_attempts_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["payment_method"] == method && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestPlaceOrderEmptyCartSkipsPersistence(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, failingRepo{})

	_, err := svc.PlaceOrder(context.Background(), "sess", CheckoutInput{Form: validForm(), PaymentMethod: "eft"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart))
	assert.Equal(t, 1.0, f.attempts(t, "eft", metrics.OutcomeEmptyCart))
}

func TestPlaceOrderValidationKeepsCart(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)
	f.carts.fill(t, "sess", storefrontLines()...)

	form := validForm()
	form.Email = ""
	_, err := svc.PlaceOrder(context.Background(), "sess", CheckoutInput{Form: form, PaymentMethod: "eft"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Len(t, f.carts.states["sess"].Items, 2)
}

func TestPlaceOrderPersistenceFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, failingRepo{})
	f.carts.fill(t, "sess", storefrontLines()...)

	_, err := svc.PlaceOrder(context.Background(), "sess", CheckoutInput{Form: validForm(), PaymentMethod: "eft"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Len(t, f.carts.states["sess"].Items, 2, "cart must survive a failed hand-off")

	var count int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 1.0, f.attempts(t, "eft", metrics.OutcomePersistence))
}

func TestPlaceOrderIdempotentRetry(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)
	ctx := context.Background()
	f.carts.fill(t, "sess", storefrontLines()...)
	input := CheckoutInput{Form: validForm(), PaymentMethod: "eft", IdempotencyKey: "retry-key"}

	first, err := svc.PlaceOrder(ctx, "sess", input)
	require.NoError(t, err)

	second, err := svc.PlaceOrder(ctx, "sess", input)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.OrderNumber, second.Order.OrderNumber)

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = svc.PlaceOrder(ctx, "intruder", input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeIdempotency))
}

func TestPlaceOrderConcurrentDuplicateReturnsWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := CheckoutInput{Form: validForm(), PaymentMethod: "eft", IdempotencyKey: "race-key"}

	f.carts.fill(t, "sess", storefrontLines()...)
	winner, err := f.service(t, nil).PlaceOrder(ctx, "sess", input)
	require.NoError(t, err)

	f.carts.fill(t, "sess", storefrontLines()...)
	racy := &racyRepo{Repository: NewRepository(f.db)}
	loser, err := f.service(t, racy).PlaceOrder(ctx, "sess", input)
	require.NoError(t, err)
	assert.True(t, loser.Replayed)
	assert.Equal(t, winner.Order.ID, loser.Order.ID)
	assert.Len(t, f.carts.states["sess"].Items, 2, "replays leave the cart alone")
}

func TestCreateFromPayload(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)

	placement, err := svc.CreateFromPayload(context.Background(), Payload{
		Items: []PayloadItem{
			{ProductID: "hm-classic-tee", Name: "HM Classic Tee", Price: decimal.NewFromInt(150), Quantity: 3},
		},
		ShippingAddress: &types.ShippingAddress{Street: "1 Main Rd", City: "Durban", Province: "KwaZulu-Natal", PostalCode: "4001"},
		PaymentMethod:   "eft",
		CustomerEmail:   "buyer@example.com",
	}, "")
	require.NoError(t, err)
	assert.True(t, placement.Order.Subtotal.Equal(decimal.NewFromInt(450)))
	assert.True(t, placement.Order.Total.Equal(decimal.NewFromInt(525)))
	assert.Equal(t, enums.OrderStatusPending, placement.Order.Status)
	assert.Equal(t, "", placement.Order.CustomerName)
}

func TestCreateFromPayloadRequiredFields(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)

	_, err := svc.CreateFromPayload(context.Background(), Payload{}, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	for _, field := range []string{"items", "shippingAddress", "paymentMethod", "customerEmail"} {
		assert.Contains(t, details, field)
	}
}

func TestFindAndListOrders(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)
	ctx := context.Background()

	var numbers []string
	for i := 0; i < 3; i++ {
		row := &models.Order{
			OrderNumber:     "HM-TEST" + string(rune('A'+i)),
			CustomerName:    "Thandi",
			CustomerEmail:   "Thandi@Example.co.za",
			CustomerPhone:   "082",
			ShippingAddress: validForm().Address,
			PaymentMethod:   enums.PaymentMethodEFT,
			Status:          enums.OrderStatusPending,
			Subtotal:        decimal.NewFromInt(100),
			ShippingFee:     decimal.NewFromInt(75),
			Total:           decimal.NewFromInt(175),
			Items:           []models.OrderItem{{Name: "Tee", UnitPrice: decimal.NewFromInt(100), Quantity: 1, LineTotal: decimal.NewFromInt(100)}},
			CreatedAt:       fixedNow.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, f.db.Create(row).Error)
		numbers = append(numbers, row.OrderNumber)
	}

	found, err := svc.FindByNumber(ctx, strings.ToLower(numbers[1]))
	require.NoError(t, err)
	assert.Equal(t, numbers[1], found.OrderNumber)
	require.Len(t, found.Items, 1)

	_, err = svc.FindByNumber(ctx, "HM-MISSING")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	page, err := svc.ListByEmail(ctx, "thandi@example.co.za", pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, numbers[2], page.Orders[0].OrderNumber)
	assert.Equal(t, numbers[1], page.Orders[1].OrderNumber)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.ListByEmail(ctx, "thandi@example.co.za", pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Equal(t, numbers[0], rest.Orders[0].OrderNumber)
	assert.Empty(t, rest.NextCursor)

	_, err = svc.ListByEmail(ctx, " ", pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
