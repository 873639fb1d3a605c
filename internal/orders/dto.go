package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// OrderItemView exposes the immutable line snapshot captured at checkout.
type OrderItemView struct {
	ID            uuid.UUID       `json:"id"`
	InventoryID   uuid.UUID       `json:"inventory_id"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	NameSnapshot  string          `json:"name"`
	ImageSnapshot *string         `json:"image_url,omitempty"`
}

// OrderView is the full order returned by the read endpoints.
type OrderView struct {
	ID            uuid.UUID            `json:"id"`
	DraftID       uuid.UUID            `json:"draft_id"`
	BranchID      uuid.UUID            `json:"branch_id"`
	Status        enums.OrderStatus    `json:"status"`
	PaymentMethod *enums.PaymentMethod `json:"payment_method,omitempty"`
	Currency      enums.Currency       `json:"currency"`
	Total         decimal.Decimal      `json:"total"`
	ExpiresAt     time.Time            `json:"expires_at"`
	CancelledAt   *time.Time           `json:"cancelled_at,omitempty"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	Items         []OrderItemView      `json:"items"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// ViewFromModel maps a stored order and its preloaded items to the read DTO.
func ViewFromModel(order *models.Order) *OrderView {
	view := &OrderView{
		ID:            order.ID,
		DraftID:       order.DraftID,
		BranchID:      order.BranchID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		Currency:      order.Currency,
		Total:         order.Total,
		ExpiresAt:     order.ExpiresAt,
		CancelledAt:   order.CancelledAt,
		CompletedAt:   order.CompletedAt,
		CreatedAt:     order.CreatedAt,
		Items:         make([]OrderItemView, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, OrderItemView{
			ID:            item.ID,
			InventoryID:   item.InventoryID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			NameSnapshot:  item.NameSnapshot,
			ImageSnapshot: item.ImageSnapshot,
		})
	}
	return view
}
