package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderView is the order representation returned by the API.
type OrderView struct {
	ID              uuid.UUID             `json:"id"`
	OrderNumber     string                `json:"order_number"`
	Status          enums.OrderStatus     `json:"status"`
	PaymentMethod   enums.PaymentMethod   `json:"payment_method"`
	PaymentLabel    string                `json:"payment_label"`
	CustomerName    string                `json:"customer_name"`
	CustomerEmail   string                `json:"customer_email"`
	CustomerPhone   string                `json:"customer_phone"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	Notes           *string               `json:"notes,omitempty"`
	Items           []Item                `json:"items"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	ShippingFee     decimal.Decimal       `json:"shipping_fee"`
	Total           decimal.Decimal       `json:"total"`
	TotalDisplay    string                `json:"total_display"`
	CreatedAt       time.Time             `json:"created_at"`
}

// Placement is the result of a checkout submission.
type Placement struct {
	Order OrderView `json:"order"`
	// Replayed is set when the idempotency key matched an existing order.
	Replayed bool `json:"replayed"`
}

// OrderList wraps one page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// PayloadItem is one line of a direct order creation request.
// ProductID carries the product slug when the client knows it.
type PayloadItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Payload is the direct order creation request used by external clients.
type Payload struct {
	Items           []PayloadItem          `json:"items"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	CustomerEmail   string                 `json:"customerEmail"`
	CustomerName    string                 `json:"customerName"`
	CustomerPhone   string                 `json:"customerPhone"`
}

func toModel(order *Order, sessionID, idempotencyKey string) *models.Order {
	row := &models.Order{
		OrderNumber:     order.OrderNumber,
		IdempotencyKey:  optional(idempotencyKey),
		SessionID:       optional(sessionID),
		CustomerName:    order.Customer.Name,
		CustomerEmail:   order.Customer.Email,
		CustomerPhone:   order.Customer.Phone,
		ShippingAddress: order.Customer.Address,
		PaymentMethod:   order.PaymentMethod,
		Status:          order.Status,
		Subtotal:        order.Subtotal,
		ShippingFee:     order.ShippingFee,
		Total:           order.Total,
		Notes:           optional(order.Customer.Notes),
		CreatedAt:       order.CreatedAt,
	}
	row.Items = make([]models.OrderItem, 0, len(order.Items))
	for i, item := range order.Items {
		row.Items = append(row.Items, models.OrderItem{
			ProductSlug: optional(item.ProductSlug),
			Name:        item.Name,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
			Position:    i,
		})
	}
	return row
}

func fromModel(row *models.Order, format func(decimal.Decimal) string) OrderView {
	view := OrderView{
		ID:              row.ID,
		OrderNumber:     row.OrderNumber,
		Status:          row.Status,
		PaymentMethod:   row.PaymentMethod,
		PaymentLabel:    row.PaymentMethod.Label(),
		CustomerName:    row.CustomerName,
		CustomerEmail:   row.CustomerEmail,
		CustomerPhone:   row.CustomerPhone,
		ShippingAddress: row.ShippingAddress,
		Notes:           row.Notes,
		Items:           make([]Item, 0, len(row.Items)),
		Subtotal:        row.Subtotal,
		ShippingFee:     row.ShippingFee,
		Total:           row.Total,
		CreatedAt:       row.CreatedAt,
	}
	if format != nil {
		view.TotalDisplay = format(row.Total)
	}
	for _, item := range row.Items {
		out := Item{
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		}
		if item.ProductSlug != nil {
			out.ProductSlug = *item.ProductSlug
		}
		view.Items = append(view.Items, out)
	}
	return view
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
