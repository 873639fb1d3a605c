package enums

import "fmt"

// InventoryEventType classifies cloud-originated events consumed by the sync engine.
// Types outside this set are recorded as applied but mutate nothing.
type InventoryEventType string

const (
	InventoryEventOnlineSale InventoryEventType = "ONLINE_SALE"
	InventoryEventAdjustment InventoryEventType = "INVENTORY_ADJUSTMENT"
	InventoryEventPriceSync  InventoryEventType = "PRICE_SYNC"
)

// String implements fmt.Stringer.
func (t InventoryEventType) String() string {
	return string(t)
}

// MutatesStock reports whether events of this type carry stock deltas.
func (t InventoryEventType) MutatesStock() bool {
	return t == InventoryEventOnlineSale || t == InventoryEventAdjustment
}

// ParseInventoryEventType converts raw input into an InventoryEventType.
func ParseInventoryEventType(value string) (InventoryEventType, error) {
	switch InventoryEventType(value) {
	case InventoryEventOnlineSale, InventoryEventAdjustment, InventoryEventPriceSync:
		return InventoryEventType(value), nil
	}
	return "", fmt.Errorf("invalid inventory event type %q", value)
}
