package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod describes how a shopper intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodEFT  PaymentMethod = "eft"
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodYoco PaymentMethod = "yoco"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodEFT,
	PaymentMethodCOD,
	PaymentMethodYoco,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// Label returns the human readable name shown at checkout.
func (p PaymentMethod) Label() string {
	switch p {
	case PaymentMethodEFT:
		return "EFT Bank Transfer"
	case PaymentMethodCOD:
		return "Cash on Delivery"
	case PaymentMethodYoco:
		return "Card Payment (Yoco)"
	default:
		return string(p)
	}
}

// IsCardGateway reports whether the method settles through the external card gateway.
func (p PaymentMethod) IsCardGateway() bool {
	return p == PaymentMethodYoco
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentMethods {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
