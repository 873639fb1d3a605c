package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
)

// Repository exposes persistence operations for sellable stock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error)
	FindByProduct(ctx context.Context, branchID, productID uuid.UUID) (*models.InventoryRecord, error)
	LockByIDs(ctx context.Context, ids []uuid.UUID) ([]models.InventoryRecord, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.InventoryRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByProduct(ctx context.Context, branchID, productID uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// LockByIDs loads the records under a row lock so concurrent checkouts
// serialize on the same stock.
func (r *repository) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]models.InventoryRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx)
	// sqlite (tests) has no row locks; writes serialize on the database file
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []models.InventoryRecord
	if err := query.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AdjustStock applies a signed delta and returns the resulting stock. The
// result may be negative; callers decide whether that is acceptable.
func (r *repository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	tx := r.db.WithContext(ctx)
	result := tx.Model(&models.InventoryRecord{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var record models.InventoryRecord
	if err := tx.Select("stock").Where("id = ?", id).First(&record).Error; err != nil {
		return 0, err
	}
	return record.Stock, nil
}

func (r *repository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]models.InventoryRecord, error) {
	var rows []models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ErrNotFound reports whether the error is a missing-record error.
func ErrNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
