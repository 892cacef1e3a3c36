package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the immutable record produced by checkout.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string                `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	IdempotencyKey  *string               `gorm:"column:idempotency_key;uniqueIndex:orders_idempotency_key_key"`
	SessionID       *string               `gorm:"column:session_id"`
	CustomerName    string                `gorm:"column:customer_name;not null"`
	CustomerEmail   string                `gorm:"column:customer_email;not null;index:orders_customer_email_idx"`
	CustomerPhone   string                `gorm:"column:customer_phone;not null"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;not null"`
	Status          enums.OrderStatus     `gorm:"column:status;not null"`
	Subtotal        decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingFee     decimal.Decimal       `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	Total           decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	Notes           *string               `gorm:"column:notes"`
	Items           []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrderItem is a frozen copy of a cart line at submission time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index:order_items_order_id_idx"`
	ProductSlug *string         `gorm:"column:product_slug"`
	Name        string          `gorm:"column:name;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	Position    int             `gorm:"column:position;not null;default:0"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
