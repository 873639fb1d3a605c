package enums

// Availability is the stock bucket frozen into draft/order item snapshots.
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityLowStock   Availability = "low_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
)

// lowStockThreshold is the largest available count still reported as low_stock.
const lowStockThreshold = 3

// AvailabilityFor buckets a live available count.
func AvailabilityFor(available int) Availability {
	switch {
	case available <= 0:
		return AvailabilityOutOfStock
	case available <= lowStockThreshold:
		return AvailabilityLowStock
	default:
		return AvailabilityInStock
	}
}

// String implements fmt.Stringer.
func (a Availability) String() string {
	return string(a)
}
