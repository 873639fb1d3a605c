package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// Order is an immutable purchase snapshot produced from a draft at checkout.
// draft_id carries a unique constraint so repeated checkout calls for the
// same draft resolve to one order.
type Order struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	DraftID        uuid.UUID            `gorm:"column:draft_id;type:uuid;not null;uniqueIndex"`
	OwnerID        uuid.UUID            `gorm:"column:owner_id;type:uuid;not null"`
	BranchID       uuid.UUID            `gorm:"column:branch_id;type:uuid;not null"`
	PickupBranchID *uuid.UUID           `gorm:"column:pickup_branch_id;type:uuid"`
	Status         enums.OrderStatus    `gorm:"column:status;not null;default:'pending_payment'"`
	PaymentMethod  *enums.PaymentMethod `gorm:"column:payment_method"`
	Currency       enums.Currency       `gorm:"column:currency;not null;default:'MXN'"`
	Total          decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	ExpiresAt      time.Time            `gorm:"column:expires_at;not null;index"`
	Items          []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CancelledAt    *time.Time           `gorm:"column:cancelled_at"`
	CompletedAt    *time.Time           `gorm:"column:completed_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
