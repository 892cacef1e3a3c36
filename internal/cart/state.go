package cart

import "strings"

// State is the persisted form of a cart.
type State struct {
	Items  []LineItem `json:"items"`
	IsOpen bool       `json:"is_open"`
}

// State captures the cart for persistence.
func (c *Cart) State() State {
	return State{Items: c.Snapshot(), IsOpen: c.isOpen}
}

// Restore rebuilds a cart from persisted state. Lines that break the cart
// invariants (blank id, non-positive quantity, negative price) are dropped and
// duplicate ids are folded into the first occurrence.
func Restore(state State) *Cart {
	c := &Cart{isOpen: state.IsOpen}
	for _, item := range state.Items {
		if strings.TrimSpace(item.LineID) == "" || item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			continue
		}
		if idx := c.indexOf(item.LineID); idx >= 0 {
			c.items[idx].Quantity += item.Quantity
			continue
		}
		if item.ProductSlug == "" {
			item.ProductSlug = item.LineID
		}
		c.items = append(c.items, item)
	}
	return c
}
