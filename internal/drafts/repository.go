package drafts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// Repository persists drafts and their items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a draft repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) DraftRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindActiveByOwner loads the owner's active draft. The partial unique index
// guarantees at most one row, so no ordering is needed.
func (r *Repository) FindActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Draft, error) {
	var draft models.Draft
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("owner_id = ? AND status = ?", ownerID, enums.DraftStatusActive).
		First(&draft).Error
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// FindByIDAndOwner returns a draft restricted to the provided owner.
func (r *Repository) FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*models.Draft, error) {
	var draft models.Draft
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&draft).Error
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// Create inserts a new draft.
func (r *Repository) Create(ctx context.Context, draft *models.Draft) (*models.Draft, error) {
	if draft.ID == uuid.Nil {
		draft.ID = uuid.New()
	}
	if draft.Status == "" {
		draft.Status = enums.DraftStatusActive
	}
	if err := r.db.WithContext(ctx).Create(draft).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

// ReplaceItems atomically replaces the draft's items.
func (r *Repository) ReplaceItems(ctx context.Context, draftID uuid.UUID, items []models.DraftItem) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("draft_id = ?", draftID).Delete(&models.DraftItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].DraftID = draftID
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return tx.Create(&items).Error
}

// UpdateStatus moves the draft to the given status, stamping converted_at on
// conversion.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.DraftStatus) error {
	updates := map[string]any{"status": status}
	if status == enums.DraftStatusConverted {
		updates["converted_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.Draft{}).
		Where("id = ?", id).
		Updates(updates).Error
}
