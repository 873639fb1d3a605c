package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// OrderCreatedEvent signals a draft was converted into a pending order.
type OrderCreatedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	DraftID   uuid.UUID         `json:"draft_id"`
	OwnerID   uuid.UUID         `json:"owner_id"`
	BranchID  uuid.UUID         `json:"branch_id"`
	Total     decimal.Decimal   `json:"total"`
	Currency  enums.Currency    `json:"currency"`
	ItemCount int               `json:"item_count"`
	Status    enums.OrderStatus `json:"status"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// OrderExpiredEvent is emitted when the reaper cancels an unpaid order and
// returns its reserved stock.
type OrderExpiredEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	BranchID      uuid.UUID `json:"branch_id"`
	ExpiredAt     time.Time `json:"expired_at"`
	RestockedQty  int       `json:"restocked_qty"`
	ReservationNo int       `json:"reservation_count"`
}

// MovementFlaggedEvent surfaces a stock delta that drove inventory negative.
type MovementFlaggedEvent struct {
	MovementID  uuid.UUID            `json:"movement_id"`
	InventoryID uuid.UUID            `json:"inventory_id"`
	BranchID    uuid.UUID            `json:"branch_id"`
	Delta       int                  `json:"delta"`
	ResultStock int                  `json:"result_stock"`
	Source      enums.MovementSource `json:"source"`
	ReferenceID string               `json:"reference_id"`
	OccurredAt  time.Time            `json:"occurred_at"`
}
