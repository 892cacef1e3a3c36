package cart

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ErrInvalidItem marks a candidate rejected before it reaches the cart.
var ErrInvalidItem = errors.New("invalid cart item")

// LineItem is one product in the cart. Name, price and image are a snapshot
// taken when the product was first added and are not refreshed from the catalog.
type LineItem struct {
	LineID      string          `json:"line_id"`
	ProductSlug string          `json:"product_slug"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Image       string          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
}

// LineTotal is unit price times quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Candidate is a line item without quantity, as offered by add-to-cart.
type Candidate struct {
	LineID      string
	ProductSlug string
	Name        string
	UnitPrice   decimal.Decimal
	Image       string
}

func (c Candidate) validate() error {
	switch {
	case strings.TrimSpace(c.LineID) == "":
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidItem, "line id is required")
	case c.UnitPrice.IsNegative():
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidItem, "unit price must not be negative").
			WithDetails(map[string]any{"line_id": c.LineID})
	}
	return nil
}

// Cart holds the shopper's line items in insertion order plus the drawer flag.
// A Cart is not safe for concurrent use.
type Cart struct {
	items  []LineItem
	isOpen bool
}

// New returns an empty, closed cart.
func New() *Cart {
	return &Cart{}
}

// AddItem merges the candidate into an existing line with the same id
// (quantity +1, existing snapshot kept) or appends a new line with quantity 1.
func (c *Cart) AddItem(candidate Candidate) error {
	if err := candidate.validate(); err != nil {
		return err
	}
	if idx := c.indexOf(candidate.LineID); idx >= 0 {
		c.items[idx].Quantity++
		return nil
	}
	slug := candidate.ProductSlug
	if slug == "" {
		slug = candidate.LineID
	}
	c.items = append(c.items, LineItem{
		LineID:      candidate.LineID,
		ProductSlug: slug,
		Name:        candidate.Name,
		UnitPrice:   candidate.UnitPrice,
		Image:       candidate.Image,
		Quantity:    1,
	})
	return nil
}

// RemoveItem deletes the line if present.
func (c *Cart) RemoveItem(lineID string) {
	idx := c.indexOf(lineID)
	if idx < 0 {
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
}

// UpdateQuantity sets the quantity exactly. A quantity of zero or less removes the line.
func (c *Cart) UpdateQuantity(lineID string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(lineID)
		return
	}
	if idx := c.indexOf(lineID); idx >= 0 {
		c.items[idx].Quantity = quantity
	}
}

// Clear empties the cart without touching the drawer flag.
func (c *Cart) Clear() {
	c.items = nil
}

// Open, Close and Toggle drive the drawer flag only.
func (c *Cart) Open() { c.isOpen = true }

func (c *Cart) Close() { c.isOpen = false }

func (c *Cart) Toggle() { c.isOpen = !c.isOpen }

func (c *Cart) IsOpen() bool { return c.isOpen }

// Subtotal sums unit price times quantity over every line. Computed on each call.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount sums quantities, not distinct lines.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Contains reports whether a line with lineID exists.
func (c *Cart) Contains(lineID string) bool {
	return c.indexOf(lineID) >= 0
}

// Snapshot returns a copy of the line items that later cart mutations cannot reach.
func (c *Cart) Snapshot() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) indexOf(lineID string) int {
	for i := range c.items {
		if c.items[i].LineID == lineID {
			return i
		}
	}
	return -1
}
