package models

import (
	"time"

	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// SyncState is the single-row cursor tracking how far the POS has consumed
// the cloud event feed.
type SyncState struct {
	POSID        string           `gorm:"column:pos_id;primaryKey"`
	Cursor       time.Time        `gorm:"column:cursor;not null"`
	LastRunAt    *time.Time       `gorm:"column:last_run_at"`
	LastResult   enums.SyncResult `gorm:"column:last_result;not null;default:'pending'"`
	LastError    *string          `gorm:"column:last_error"`
	AppliedTotal int64            `gorm:"column:applied_total;not null;default:0"`
	PendingCount int              `gorm:"column:pending_count;not null;default:0"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
