package orders

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ErrEmptyCart is returned when checkout is attempted with no line items.
var ErrEmptyCart = errors.New("cart is empty")

var validate = validator.New()

// CheckoutForm is the contact and shipping data captured at checkout.
type CheckoutForm struct {
	Name    string                `json:"name"`
	Email   string                `json:"email"`
	Phone   string                `json:"phone"`
	Address types.ShippingAddress `json:"address"`
	Notes   string                `json:"notes,omitempty"`
}

func (f CheckoutForm) trimmed() CheckoutForm {
	return CheckoutForm{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Phone:   strings.TrimSpace(f.Phone),
		Address: f.Address.Trimmed(),
		Notes:   strings.TrimSpace(f.Notes),
	}
}

// Item is a frozen copy of one cart line.
type Item struct {
	ProductSlug string          `json:"product_slug,omitempty"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Order is the immutable record produced by Assemble.
type Order struct {
	OrderNumber   string
	Status        enums.OrderStatus
	PaymentMethod enums.PaymentMethod
	Customer      CheckoutForm
	Items         []Item
	Subtotal      decimal.Decimal
	ShippingFee   decimal.Decimal
	Total         decimal.Decimal
	CreatedAt     time.Time
}

// Assembler turns a cart snapshot plus checkout input into an Order.
type Assembler struct {
	Policy             pricing.Policy
	CardGatewayEnabled bool
	Clock              func() time.Time
}

// Assemble builds an order with the card gateway disabled.
func Assemble(items []cart.LineItem, form CheckoutForm, method string, policy pricing.Policy, now time.Time) (*Order, error) {
	a := Assembler{Policy: policy, Clock: func() time.Time { return now }}
	return a.Assemble(items, form, method)
}

// Assemble validates in order: empty cart, required fields, payment method.
// Nothing is persisted here.
func (a Assembler) Assemble(items []cart.LineItem, form CheckoutForm, method string) (*Order, error) {
	if len(items) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeEmptyCart, ErrEmptyCart, "cart is empty")
	}

	form = form.trimmed()
	if err := validateForm(form); err != nil {
		return nil, err
	}

	paymentMethod, err := a.parseMethod(method)
	if err != nil {
		return nil, err
	}

	frozen := freeze(items)
	subtotal := decimal.Zero
	for _, item := range frozen {
		subtotal = subtotal.Add(item.LineTotal)
	}
	shipping := a.Policy.ComputeShippingFee(subtotal)
	now := a.now()

	return &Order{
		OrderNumber:   a.Policy.OrderNumberAt(now),
		Status:        enums.InitialOrderStatus(paymentMethod),
		PaymentMethod: paymentMethod,
		Customer:      form,
		Items:         frozen,
		Subtotal:      subtotal,
		ShippingFee:   shipping,
		Total:         subtotal.Add(shipping),
		CreatedAt:     now,
	}, nil
}

func (a Assembler) now() time.Time {
	if a.Clock != nil {
		return a.Clock().UTC()
	}
	return time.Now().UTC()
}

func (a Assembler) parseMethod(raw string) (enums.PaymentMethod, error) {
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment method").
			WithDetails(map[string]string{"payment_method": "is invalid"})
	}
	if method.IsCardGateway() && !a.CardGatewayEnabled {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "card payments are currently unavailable").
			WithDetails(map[string]string{"payment_method": "is unavailable"})
	}
	return method, nil
}

func validateForm(form CheckoutForm) error {
	required := []struct {
		field string
		value string
	}{
		{"name", form.Name},
		{"email", form.Email},
		{"phone", form.Phone},
		{"street", form.Address.Street},
		{"city", form.Address.City},
		{"province", form.Address.Province},
		{"postal_code", form.Address.PostalCode},
	}
	details := map[string]string{}
	for _, r := range required {
		if r.value == "" {
			details[r.field] = "is required"
		}
	}
	if _, missing := details["email"]; !missing {
		if err := validate.Var(form.Email, "email"); err != nil {
			details["email"] = "must be a valid email"
		}
	}
	if _, missing := details["province"]; !missing && !types.IsKnownProvince(form.Address.Province) {
		details["province"] = "is not a supported province"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout form is incomplete").WithDetails(details)
	}
	return nil
}

func freeze(items []cart.LineItem) []Item {
	out := make([]Item, 0, len(items))
	for _, line := range items {
		out = append(out, Item{
			ProductSlug: line.ProductSlug,
			Name:        line.Name,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			LineTotal:   line.LineTotal(),
		})
	}
	return out
}
