package enums

import "fmt"

// CookieConsent is the tri-state cookie banner answer.
type CookieConsent string

const (
	CookieConsentUnset    CookieConsent = "unset"
	CookieConsentAccepted CookieConsent = "accepted"
	CookieConsentRejected CookieConsent = "rejected"
)

var validCookieConsents = []CookieConsent{
	CookieConsentUnset,
	CookieConsentAccepted,
	CookieConsentRejected,
}

// String implements fmt.Stringer.
func (c CookieConsent) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CookieConsent.
func (c CookieConsent) IsValid() bool {
	for _, candidate := range validCookieConsents {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCookieConsent converts raw input into a CookieConsent. Empty input maps to unset.
func ParseCookieConsent(value string) (CookieConsent, error) {
	if value == "" {
		return CookieConsentUnset, nil
	}
	for _, candidate := range validCookieConsents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cookie consent %q", value)
}
