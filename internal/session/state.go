package session

import (
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/preferences"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// State is the per-shopper document persisted between requests.
type State struct {
	Cart          cart.State          `json:"cart"`
	Wishlist      wishlist.State      `json:"wishlist"`
	AgeVerified   bool                `json:"age_verified"`
	CookieConsent enums.CookieConsent `json:"cookie_consent"`
}

// Empty is the document of a shopper with no saved state.
func Empty() State {
	return State{
		Cart:          cart.State{Items: []cart.LineItem{}},
		Wishlist:      wishlist.State{},
		CookieConsent: enums.CookieConsentUnset,
	}
}

// Preferences projects the age gate and consent fields.
func (s State) Preferences() preferences.State {
	return preferences.State{AgeVerified: s.AgeVerified, CookieConsent: s.CookieConsent}.Normalize()
}

func (s *State) setPreferences(p preferences.State) {
	s.AgeVerified = p.AgeVerified
	s.CookieConsent = p.CookieConsent
}

func decodeState(raw []byte) (State, error) {
	state := Empty()
	if len(raw) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("decode session state: %w", err)
	}
	consent, err := enums.ParseCookieConsent(string(state.CookieConsent))
	if err != nil {
		consent = enums.CookieConsentUnset
	}
	state.CookieConsent = consent
	return state, nil
}

func encodeState(state State) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}
	return raw, nil
}
