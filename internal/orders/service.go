package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CheckoutInput is one checkout submission from a shopper session.
type CheckoutInput struct {
	Form           CheckoutForm
	PaymentMethod  string
	IdempotencyKey string
}

// Service places and reads orders.
type Service interface {
	PlaceOrder(ctx context.Context, sessionID string, input CheckoutInput) (*Placement, error)
	CreateFromPayload(ctx context.Context, payload Payload, idempotencyKey string) (*Placement, error)
	FindByNumber(ctx context.Context, orderNumber string) (*OrderView, error)
	ListByEmail(ctx context.Context, email string, params pagination.Params) (*OrderList, error)
}

// ServiceParams groups the dependencies of the orders service.
type ServiceParams struct {
	Tx                 txRunner
	Repo               Repository
	Carts              cart.Store
	Outbox             outbox.Emitter
	Policy             pricing.Policy
	CardGatewayEnabled bool
	Metrics            *metrics.CheckoutMetrics
	Logger             *logger.Logger
	Clock              func() time.Time
}

type service struct {
	tx        txRunner
	repo      Repository
	carts     cart.Store
	outbox    outbox.Emitter
	assembler Assembler
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
}

// NewService builds the orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, errors.New("tx runner required")
	}
	if params.Repo == nil {
		return nil, errors.New("orders repository required")
	}
	if params.Carts == nil {
		return nil, errors.New("cart store required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Policy.OrderNumberPrefix == "" {
		params.Policy = pricing.DefaultPolicy()
	}
	return &service{
		tx:     params.Tx,
		repo:   params.Repo,
		carts:  params.Carts,
		outbox: params.Outbox,
		assembler: Assembler{
			Policy:             params.Policy,
			CardGatewayEnabled: params.CardGatewayEnabled,
			Clock:              params.Clock,
		},
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// PlaceOrder assembles an order from the session cart and persists it. The cart
// is cleared only after the order is committed.
func (s *service) PlaceOrder(ctx context.Context, sessionID string, input CheckoutInput) (*Placement, error) {
	started := time.Now()
	method := methodLabel(input.PaymentMethod)
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)
	key := strings.TrimSpace(input.IdempotencyKey)

	if existing, err := s.replay(ctx, key, sessionID); err != nil || existing != nil {
		if existing != nil {
			s.metrics.ObserveAttempt(method, metrics.OutcomeIdempotentRetry, time.Since(started))
		}
		return existing, err
	}

	state, err := s.carts.LoadCart(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	current := cart.Restore(state)

	order, err := s.assembler.Assemble(current.Snapshot(), input.Form, input.PaymentMethod)
	if err != nil {
		s.metrics.ObserveAttempt(method, outcomeFor(err), time.Since(started))
		return nil, err
	}

	placement, err := s.persist(ctx, order, sessionID, key)
	if err != nil {
		s.metrics.ObserveAttempt(method, outcomeFor(err), time.Since(started))
		return nil, err
	}
	if placement.Replayed {
		s.metrics.ObserveAttempt(method, metrics.OutcomeIdempotentRetry, time.Since(started))
		return placement, nil
	}
	s.metrics.ObserveAttempt(method, metrics.OutcomeSuccess, time.Since(started))
	s.metrics.ObserveOrderTotal(method, order.Total)

	current.Clear()
	if err := s.carts.SaveCart(ctx, sessionID, current.State()); err != nil {
		s.logg.Error(ctx, "order placed but cart could not be cleared", err)
	}
	return placement, nil
}

// CreateFromPayload persists an order described entirely by the request body.
// Totals are recomputed from item prices and quantities.
func (s *service) CreateFromPayload(ctx context.Context, payload Payload, idempotencyKey string) (*Placement, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(idempotencyKey)
	if existing, err := s.replay(ctx, key, ""); err != nil || existing != nil {
		return existing, err
	}

	method, err := s.assembler.parseMethod(payload.PaymentMethod)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(payload.Items))
	subtotal := decimal.Zero
	for _, in := range payload.Items {
		line := in.Price.Mul(decimal.NewFromInt(int64(in.Quantity)))
		subtotal = subtotal.Add(line)
		items = append(items, Item{
			ProductSlug: strings.TrimSpace(in.ProductID),
			Name:        strings.TrimSpace(in.Name),
			UnitPrice:   in.Price,
			Quantity:    in.Quantity,
			LineTotal:   line,
		})
	}
	shipping := s.assembler.Policy.ComputeShippingFee(subtotal)
	now := s.assembler.now()
	order := &Order{
		OrderNumber:   s.assembler.Policy.OrderNumberAt(now),
		Status:        enums.InitialOrderStatus(method),
		PaymentMethod: method,
		Customer: CheckoutForm{
			Name:    strings.TrimSpace(payload.CustomerName),
			Email:   strings.TrimSpace(payload.CustomerEmail),
			Phone:   strings.TrimSpace(payload.CustomerPhone),
			Address: payload.ShippingAddress.Trimmed(),
		},
		Items:       items,
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Total:       subtotal.Add(shipping),
		CreatedAt:   now,
	}
	return s.persist(ctx, order, "", key)
}

func (s *service) FindByNumber(ctx context.Context, orderNumber string) (*OrderView, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	row, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	view := s.view(row)
	return &view, nil
}

func (s *service) ListByEmail(ctx context.Context, email string, params pagination.Params) (*OrderList, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required").
			WithDetails(map[string]string{"email": "is required"})
	}
	rows, next, err := s.repo.ListByEmail(ctx, email, params)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{Orders: make([]OrderView, 0, len(rows)), NextCursor: next}
	for i := range rows {
		list.Orders = append(list.Orders, s.view(&rows[i]))
	}
	return list, nil
}

// persist writes the order and its order_created event in one transaction. A
// unique violation on the idempotency key means a concurrent submission won;
// that order is returned instead.
func (s *service) persist(ctx context.Context, order *Order, sessionID, key string) (*Placement, error) {
	row := toModel(order, sessionID, key)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return err
		}
		return s.emitOrderCreated(ctx, tx, row)
	})
	if err != nil {
		if key != "" && dbpkg.IsUniqueViolation(err, IdempotencyConstraint) {
			if existing, lookupErr := s.replay(ctx, key, sessionID); lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		s.logg.Error(ctx, "order persistence failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order could not be saved, please try again")
	}

	ctx = s.logg.WithOrderNumber(ctx, row.OrderNumber)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_method": row.PaymentMethod,
		"status":         row.Status,
		"total":          row.Total.StringFixed(2),
	}), "order placed")
	return &Placement{Order: s.view(row)}, nil
}

// replay returns the order already stored under key, if any. A key created by
// another session is rejected.
func (s *service) replay(ctx context.Context, key, sessionID string) (*Placement, error) {
	if key == "" {
		return nil, nil
	}
	row, err := s.repo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key")
	}
	owner := ""
	if row.SessionID != nil {
		owner = *row.SessionID
	}
	if owner != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used")
	}
	s.logg.Info(s.logg.WithOrderNumber(ctx, row.OrderNumber), "checkout replayed from idempotency key")
	return &Placement{Order: s.view(row), Replayed: true}, nil
}

func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, row *models.Order) error {
	count := 0
	for _, item := range row.Items {
		count += item.Quantity
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   row.ID,
		Data: payloads.OrderCreatedEvent{
			OrderID:       row.ID,
			OrderNumber:   row.OrderNumber,
			CustomerEmail: row.CustomerEmail,
			PaymentMethod: row.PaymentMethod,
			Status:        row.Status,
			Total:         row.Total,
			ItemCount:     count,
		},
	}
	if row.SessionID != nil {
		event.Actor = &outbox.ActorRef{SessionID: *row.SessionID, Email: row.CustomerEmail}
	}
	return s.outbox.Emit(ctx, tx, event)
}

func (s *service) view(row *models.Order) OrderView {
	return fromModel(row, s.assembler.Policy.FormatCurrency)
}

func validatePayload(p Payload) error {
	details := map[string]string{}
	if len(p.Items) == 0 {
		details["items"] = "is required"
	}
	if p.ShippingAddress == nil || p.ShippingAddress.IsZero() {
		details["shippingAddress"] = "is required"
	}
	if strings.TrimSpace(p.PaymentMethod) == "" {
		details["paymentMethod"] = "is required"
	}
	email := strings.TrimSpace(p.CustomerEmail)
	if email == "" {
		details["customerEmail"] = "is required"
	} else if err := validate.Var(email, "email"); err != nil {
		details["customerEmail"] = "must be a valid email"
	}
	for _, item := range p.Items {
		if strings.TrimSpace(item.Name) == "" || item.Quantity <= 0 || item.Price.IsNegative() {
			details["items"] = "each item needs a name, a non-negative price and a positive quantity"
			break
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required order information").WithDetails(details)
	}
	return nil
}

func outcomeFor(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart):
		return metrics.OutcomeEmptyCart
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		return metrics.OutcomeValidation
	default:
		return metrics.OutcomePersistence
	}
}

// methodLabel keeps metric label cardinality bounded to known methods.
func methodLabel(raw string) string {
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return "invalid"
	}
	return method.String()
}
