package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// InventoryMovement is an immutable ledger row recording every stock delta.
// Flagged marks movements whose resulting stock went negative.
type InventoryMovement struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	InventoryID   uuid.UUID                   `gorm:"column:inventory_id;type:uuid;not null;index"`
	BranchID      uuid.UUID                   `gorm:"column:branch_id;type:uuid;not null"`
	Delta         int                         `gorm:"column:delta;not null"`
	ResultStock   int                         `gorm:"column:result_stock;not null"`
	Source        enums.MovementSource        `gorm:"column:source;not null"`
	ReferenceType enums.MovementReferenceType `gorm:"column:reference_type;not null"`
	ReferenceID   string                      `gorm:"column:reference_id;not null"`
	Flagged       bool                        `gorm:"column:flagged;not null;default:false"`
	Metadata      json.RawMessage             `gorm:"column:metadata;type:jsonb"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
