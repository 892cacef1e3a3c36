package wishlist

import "strings"

// State is the persisted form of a wishlist: slugs in the order they were saved.
type State []string

// Wishlist is a set of product slugs that remembers insertion order for display.
// A Wishlist is not safe for concurrent use.
type Wishlist struct {
	slugs []string
}

// New returns an empty wishlist.
func New() *Wishlist {
	return &Wishlist{}
}

// Restore rebuilds a wishlist from persisted state, dropping blanks and duplicates.
func Restore(state State) *Wishlist {
	w := New()
	for _, slug := range state {
		w.AddItem(slug)
	}
	return w
}

// State captures the wishlist for persistence.
func (w *Wishlist) State() State {
	return State(w.Items())
}

// AddItem saves slug if it is not already present.
func (w *Wishlist) AddItem(slug string) {
	slug = strings.TrimSpace(slug)
	if slug == "" || w.IsInWishlist(slug) {
		return
	}
	w.slugs = append(w.slugs, slug)
}

// RemoveItem drops slug if present.
func (w *Wishlist) RemoveItem(slug string) {
	if idx := w.indexOf(strings.TrimSpace(slug)); idx >= 0 {
		w.slugs = append(w.slugs[:idx], w.slugs[idx+1:]...)
	}
}

// ToggleItem flips membership of slug in one step and returns the new membership.
func (w *Wishlist) ToggleItem(slug string) bool {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return false
	}
	if idx := w.indexOf(slug); idx >= 0 {
		w.slugs = append(w.slugs[:idx], w.slugs[idx+1:]...)
		return false
	}
	w.slugs = append(w.slugs, slug)
	return true
}

// IsInWishlist reports whether slug is saved.
func (w *Wishlist) IsInWishlist(slug string) bool {
	return w.indexOf(slug) >= 0
}

// Clear removes every slug.
func (w *Wishlist) Clear() {
	w.slugs = nil
}

// Items returns a copy of the saved slugs in insertion order.
func (w *Wishlist) Items() []string {
	out := make([]string, len(w.slugs))
	copy(out, w.slugs)
	return out
}

// Len is the number of saved slugs.
func (w *Wishlist) Len() int {
	return len(w.slugs)
}

func (w *Wishlist) indexOf(slug string) int {
	for i, s := range w.slugs {
		if s == slug {
			return i
		}
	}
	return -1
}
