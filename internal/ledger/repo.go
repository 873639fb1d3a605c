package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
)

// Repository manages persistence for the inventory movement ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, movement *models.InventoryMovement) error
	ListByInventory(ctx context.Context, inventoryID uuid.UUID, limit int) ([]models.InventoryMovement, error)
	ListFlaggedSince(ctx context.Context, since time.Time, limit int) ([]models.InventoryMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a movement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, movement *models.InventoryMovement) error {
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListByInventory(ctx context.Context, inventoryID uuid.UUID, limit int) ([]models.InventoryMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.InventoryMovement
	err := r.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListFlaggedSince(ctx context.Context, since time.Time, limit int) ([]models.InventoryMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.InventoryMovement
	err := r.db.WithContext(ctx).
		Where("flagged AND created_at >= ?", since).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
