package enums

import "fmt"

// OrderStatus tracks the lifecycle of an order from creation to a terminal state.
type OrderStatus string

const (
	OrderStatusPendingPayment    OrderStatus = "pending_payment"
	OrderStatusPaid              OrderStatus = "paid"
	OrderStatusReadyForPickup    OrderStatus = "ready_for_pickup"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusShipped           OrderStatus = "shipped"
	OrderStatusCancelledExpired  OrderStatus = "cancelled_expired"
	OrderStatusCancelledManual   OrderStatus = "cancelled_manual"
	OrderStatusCancelledRefunded OrderStatus = "cancelled_refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusPaid,
	OrderStatusReadyForPickup,
	OrderStatusCompleted,
	OrderStatusShipped,
	OrderStatusCancelledExpired,
	OrderStatusCancelledManual,
	OrderStatusCancelledRefunded,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from the status.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusCompleted, OrderStatusShipped,
		OrderStatusCancelledExpired, OrderStatusCancelledManual, OrderStatusCancelledRefunded:
		return true
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
