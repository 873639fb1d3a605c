package branches

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/enriquemoya/cardstock-backend/internal/repo"
	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
)

// Repository exposes read access to branch records.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Branch, error)
	FindBySlug(ctx context.Context, slug string) (*models.Branch, error)
	ListActive(ctx context.Context) ([]models.Branch, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a branch repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	var branch models.Branch
	err := r.base.DB(ctx).Where("id = ? AND active", id).First(&branch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeBranchNotFound, "branch not found")
		}
		return nil, err
	}
	return &branch, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Branch, error) {
	var branch models.Branch
	err := r.base.DB(ctx).Where("slug = ? AND active", slug).First(&branch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeBranchNotFound, "branch not found")
		}
		return nil, err
	}
	return &branch, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Branch, error) {
	var rows []models.Branch
	err := r.base.DB(ctx).
		Where("active").
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}
