package drafts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// DraftRepository defines the persistence surface required by the draft service.
type DraftRepository interface {
	WithTx(tx *gorm.DB) DraftRepository
	FindActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Draft, error)
	FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*models.Draft, error)
	Create(ctx context.Context, draft *models.Draft) (*models.Draft, error)
	ReplaceItems(ctx context.Context, draftID uuid.UUID, items []models.DraftItem) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.DraftStatus) error
}
