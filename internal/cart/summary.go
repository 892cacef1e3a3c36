package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
)

// Summary is the cart page view: lines plus derived totals.
type Summary struct {
	Items                   []LineItem      `json:"items"`
	ItemCount               int             `json:"item_count"`
	Subtotal                decimal.Decimal `json:"subtotal"`
	ShippingFee             decimal.Decimal `json:"shipping_fee"`
	Total                   decimal.Decimal `json:"total"`
	AmountUntilFreeShipping decimal.Decimal `json:"amount_until_free_shipping"`
	FreeShipping            bool            `json:"free_shipping"`
	IsOpen                  bool            `json:"is_open"`
	SubtotalDisplay         string          `json:"subtotal_display"`
	TotalDisplay            string          `json:"total_display"`
}

// Summary derives totals from the current lines under policy.
func (c *Cart) Summary(policy pricing.Policy) Summary {
	subtotal := c.Subtotal()
	shipping := policy.ComputeShippingFee(subtotal)
	total := subtotal.Add(shipping)
	return Summary{
		Items:                   c.Snapshot(),
		ItemCount:               c.ItemCount(),
		Subtotal:                subtotal,
		ShippingFee:             shipping,
		Total:                   total,
		AmountUntilFreeShipping: policy.AmountUntilFreeShipping(subtotal),
		FreeShipping:            shipping.IsZero(),
		IsOpen:                  c.isOpen,
		SubtotalDisplay:         policy.FormatCurrency(subtotal),
		TotalDisplay:            policy.FormatCurrency(total),
	}
}
