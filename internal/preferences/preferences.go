package preferences

import "github.com/angelmondragon/storefront-backend/pkg/enums"

// State holds the per-session age gate and cookie banner answers.
type State struct {
	AgeVerified   bool                `json:"age_verified"`
	CookieConsent enums.CookieConsent `json:"cookie_consent"`
}

// Normalize maps unknown or empty consent values to unset.
func (s State) Normalize() State {
	if !s.CookieConsent.IsValid() {
		s.CookieConsent = enums.CookieConsentUnset
	}
	return s
}

// SetVerified records the age gate answer.
func (s *State) SetVerified(verified bool) {
	s.AgeVerified = verified
}

// SetConsent records the cookie banner answer. Once answered the consent never
// returns to unset.
func (s *State) SetConsent(accepted bool) {
	if accepted {
		s.CookieConsent = enums.CookieConsentAccepted
		return
	}
	s.CookieConsent = enums.CookieConsentRejected
}

// ConsentAnswered reports whether the banner should stay hidden.
func (s State) ConsentAnswered() bool {
	return s.CookieConsent == enums.CookieConsentAccepted || s.CookieConsent == enums.CookieConsentRejected
}
