package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// InventoryRecord is the sellable stock row for a card product at a branch.
// Stock is a signed count; sync-applied events may drive it below zero and
// the value is never clamped.
type InventoryRecord struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	BranchID  uuid.UUID       `gorm:"column:branch_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	Slug      string          `gorm:"column:slug;not null"`
	Game      string          `gorm:"column:game;not null"`
	ImageURL  *string         `gorm:"column:image_url"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Currency  enums.Currency  `gorm:"column:currency;not null;default:'MXN'"`
	Stock     int             `gorm:"column:stock;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
