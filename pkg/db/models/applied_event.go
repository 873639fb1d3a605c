package models

import (
	"time"

	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// AppliedEvent is the idempotency gate for the sync engine. The unique
// event_id constraint makes replaying a cloud event a no-op.
type AppliedEvent struct {
	EventID    string                   `gorm:"column:event_id;primaryKey"`
	EventType  enums.InventoryEventType `gorm:"column:event_type;not null"`
	OccurredAt time.Time                `gorm:"column:occurred_at;not null"`
	AppliedAt  time.Time                `gorm:"column:applied_at;autoCreateTime"`
}
