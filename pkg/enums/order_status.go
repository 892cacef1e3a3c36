package enums

// OrderStatus is the lifecycle state an order is created with.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// InitialOrderStatus derives the creation status from the payment method.
// Cash on delivery orders are confirmed immediately; everything else waits on payment.
func InitialOrderStatus(method PaymentMethod) OrderStatus {
	if method == PaymentMethodCOD {
		return OrderStatusConfirmed
	}
	return OrderStatusPending
}
