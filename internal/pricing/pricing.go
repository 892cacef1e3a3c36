package pricing

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

const (
	DefaultFreeShippingThreshold = 500
	DefaultStandardShippingFee   = 75
	DefaultCurrencySymbol        = "R"
	DefaultOrderNumberPrefix     = "HM"

	orderSuffixLen = 4
	base36         = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Policy carries the storefront pricing constants. Amounts are whole currency units.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	StandardShippingFee   decimal.Decimal
	CurrencySymbol        string
	Locale                language.Tag
	OrderNumberPrefix     string
}

// DefaultPolicy returns the stock policy: free shipping from 500, otherwise a flat 75.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(DefaultFreeShippingThreshold),
		StandardShippingFee:   decimal.NewFromInt(DefaultStandardShippingFee),
		CurrencySymbol:        DefaultCurrencySymbol,
		Locale:                language.English,
		OrderNumberPrefix:     DefaultOrderNumberPrefix,
	}
}

// PolicyFromConfig builds a Policy from the pricing config section, falling back
// to defaults for blank values.
func PolicyFromConfig(cfg config.PricingConfig) Policy {
	p := DefaultPolicy()
	if cfg.FreeShippingThreshold >= 0 {
		p.FreeShippingThreshold = decimal.NewFromInt(cfg.FreeShippingThreshold)
	}
	if cfg.StandardShippingFee >= 0 {
		p.StandardShippingFee = decimal.NewFromInt(cfg.StandardShippingFee)
	}
	if s := strings.TrimSpace(cfg.CurrencySymbol); s != "" {
		p.CurrencySymbol = s
	}
	if tag, err := language.Parse(strings.TrimSpace(cfg.Locale)); err == nil {
		p.Locale = tag
	}
	if prefix := strings.TrimSpace(cfg.OrderNumberPrefix); prefix != "" {
		p.OrderNumberPrefix = strings.ToUpper(prefix)
	}
	return p
}

// FormatCurrency renders amount for display, e.g. "R 1,234.50". The output is
// never parsed back into an amount.
func (p Policy) FormatCurrency(amount decimal.Decimal) string {
	printer := message.NewPrinter(p.Locale)
	formatted := printer.Sprint(number.Decimal(
		amount.Round(2).InexactFloat64(),
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
	if p.CurrencySymbol == "" {
		return formatted
	}
	return p.CurrencySymbol + " " + formatted
}

// ComputeShippingFee returns zero when subtotal reaches the free shipping
// threshold (inclusive) and the flat fee otherwise.
func (p Policy) ComputeShippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.StandardShippingFee
}

// AmountUntilFreeShipping is how much more the shopper must spend to ship free.
func (p Policy) AmountUntilFreeShipping(subtotal decimal.Decimal) decimal.Decimal {
	remaining := p.FreeShippingThreshold.Sub(subtotal)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Total is subtotal plus the shipping fee for that subtotal.
func (p Policy) Total(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Add(p.ComputeShippingFee(subtotal))
}

// GenerateOrderNumber returns a display reference such as "HM-MB3K9Z1C7Q2X".
func (p Policy) GenerateOrderNumber() string {
	return p.OrderNumberAt(time.Now())
}

// OrderNumberAt builds an order number from the millisecond timestamp of now in
// base 36 plus a random suffix so calls within the same millisecond differ.
func (p Policy) OrderNumberAt(now time.Time) string {
	prefix := p.OrderNumberPrefix
	if prefix == "" {
		prefix = DefaultOrderNumberPrefix
	}
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return prefix + "-" + stamp + randomSuffix(orderSuffixLen)
}

func randomSuffix(n int) string {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(base36)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing leaves the timestamp as the only discriminator
			b.WriteByte('0')
			continue
		}
		b.WriteByte(base36[idx.Int64()])
	}
	return b.String()
}

var defaultPolicy = DefaultPolicy()

// FormatCurrency formats amount with the default policy.
func FormatCurrency(amount decimal.Decimal) string {
	return defaultPolicy.FormatCurrency(amount)
}

// ComputeShippingFee applies the default threshold and fee.
func ComputeShippingFee(subtotal decimal.Decimal) decimal.Decimal {
	return defaultPolicy.ComputeShippingFee(subtotal)
}

// AmountUntilFreeShipping applies the default threshold.
func AmountUntilFreeShipping(subtotal decimal.Decimal) decimal.Decimal {
	return defaultPolicy.AmountUntilFreeShipping(subtotal)
}

// GenerateOrderNumber uses the default prefix.
func GenerateOrderNumber() string {
	return defaultPolicy.GenerateOrderNumber()
}
