package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// Draft is a mutable pre-order snapshot scoped to a single owner.
// A partial unique index on (owner_id) WHERE status = 'active' guarantees
// at most one active draft per owner.
type Draft struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID         `gorm:"column:owner_id;type:uuid;not null"`
	BranchID    uuid.UUID         `gorm:"column:branch_id;type:uuid;not null"`
	Status      enums.DraftStatus `gorm:"column:status;not null;default:'active'"`
	Currency    enums.Currency    `gorm:"column:currency;not null;default:'MXN'"`
	Items       []DraftItem       `gorm:"foreignKey:DraftID;constraint:OnDelete:CASCADE"`
	ConvertedAt *time.Time        `gorm:"column:converted_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
