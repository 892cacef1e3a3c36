package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is handed to fulfillment once an order is persisted.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerEmail string              `json:"customer_email"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.OrderStatus   `json:"status"`
	Total         decimal.Decimal     `json:"total"`
	ItemCount     int                 `json:"item_count"`
}

// NewsletterSubscriptionEvent signals an opt-in or opt-out for the mailing list.
type NewsletterSubscriptionEvent struct {
	SubscriberID uuid.UUID `json:"subscriber_id"`
	Email        string    `json:"email"`
	Active       bool      `json:"active"`
}
