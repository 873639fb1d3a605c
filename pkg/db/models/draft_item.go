package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DraftItem is a line inside a draft with the price captured at add time.
type DraftItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DraftID       uuid.UUID       `gorm:"column:draft_id;type:uuid;not null;index"`
	InventoryID   uuid.UUID       `gorm:"column:inventory_id;type:uuid;not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	NameSnapshot  string          `gorm:"column:name_snapshot;not null"`
	ImageSnapshot *string         `gorm:"column:image_snapshot"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
