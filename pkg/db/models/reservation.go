package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// Reservation holds stock against an order line until payment or expiration.
type Reservation struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	InventoryID uuid.UUID               `gorm:"column:inventory_id;type:uuid;not null"`
	Quantity    int                     `gorm:"column:quantity;not null"`
	Status      enums.ReservationStatus `gorm:"column:status;not null;default:'active'"`
	ExpiresAt   time.Time               `gorm:"column:expires_at;not null"`
	ReleasedAt  *time.Time              `gorm:"column:released_at"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
