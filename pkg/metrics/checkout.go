package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Checkout outcomes used as the outcome label.
const (
	OutcomeSuccess         = "success"
	OutcomeEmptyCart       = "empty_cart"
	OutcomeValidation      = "validation_error"
	OutcomePersistence     = "persistence_failure"
	OutcomeIdempotentRetry = "idempotent_retry"
)

// CheckoutMetrics records checkout attempts and placed order values.
type CheckoutMetrics struct {
	attempts   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	orderValue *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout submissions by payment method and outcome.",
	}, []string{"payment_method", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Time spent assembling and persisting an order.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	orderValue := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_order_total",
		Help:    "Order totals in whole currency units.",
		Buckets: []float64{100, 250, 500, 750, 1000, 2000, 5000},
	}, []string{"payment_method"})
	reg.MustRegister(attempts, duration, orderValue)
	return &CheckoutMetrics{
		attempts:   attempts,
		duration:   duration,
		orderValue: orderValue,
	}
}

// ObserveAttempt counts one checkout submission and its latency.
func (c *CheckoutMetrics) ObserveAttempt(method, outcome string, elapsed time.Duration) {
	if c == nil || c.attempts == nil {
		return
	}
	c.attempts.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(elapsed.Seconds())
}

// ObserveOrderTotal records the total of a placed order.
func (c *CheckoutMetrics) ObserveOrderTotal(method string, total decimal.Decimal) {
	if c == nil || c.orderValue == nil {
		return
	}
	c.orderValue.WithLabelValues(normalizeLabel(method)).Observe(total.InexactFloat64())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
