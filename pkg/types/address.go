package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Provinces lists the delivery regions the storefront ships to.
var Provinces = []string{
	"Eastern Cape",
	"Free State",
	"Gauteng",
	"KwaZulu-Natal",
	"Limpopo",
	"Mpumalanga",
	"North West",
	"Northern Cape",
	"Western Cape",
}

// ShippingAddress is the delivery address captured at checkout, persisted as JSON.
type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
}

// IsZero reports whether every address field is blank.
func (a ShippingAddress) IsZero() bool {
	return strings.TrimSpace(a.Street) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.Province) == "" &&
		strings.TrimSpace(a.PostalCode) == ""
}

// Trimmed returns a copy with surrounding whitespace removed from each field.
func (a ShippingAddress) Trimmed() ShippingAddress {
	return ShippingAddress{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		Province:   strings.TrimSpace(a.Province),
		PostalCode: strings.TrimSpace(a.PostalCode),
	}
}

// IsKnownProvince reports whether name matches a supported province, ignoring case.
func IsKnownProvince(name string) bool {
	for _, p := range Provinces {
		if strings.EqualFold(p, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// Value marshals the address to JSON.
func (a ShippingAddress) Value() (driver.Value, error) {
	buf, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes a JSON document into the address.
func (a *ShippingAddress) Scan(value interface{}) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}
	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("shipping address: unsupported scan type %T", value)
	}
	var decoded ShippingAddress
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("shipping address: %w", err)
	}
	*a = decoded
	return nil
}

func toBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	default:
		return nil, false
	}
}
