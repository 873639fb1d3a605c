package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is a frozen line copied from the draft when the order is created.
type OrderItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	InventoryID   uuid.UUID       `gorm:"column:inventory_id;type:uuid;not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	NameSnapshot  string          `gorm:"column:name_snapshot;not null"`
	ImageSnapshot *string         `gorm:"column:image_snapshot"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
