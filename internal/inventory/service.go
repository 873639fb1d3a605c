package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
)

// ItemAvailability is the storefront view of a stock record. Stock below zero
// is reported as zero here; the raw signed value stays in the record.
type ItemAvailability struct {
	InventoryID  uuid.UUID          `json:"inventoryId"`
	ProductID    uuid.UUID          `json:"productId"`
	Name         string             `json:"name"`
	Slug         string             `json:"slug"`
	Game         string             `json:"game"`
	ImageURL     *string            `json:"imageUrl,omitempty"`
	Price        decimal.Decimal    `json:"price"`
	Available    int                `json:"available"`
	Availability enums.Availability `json:"availability"`
}

// Service exposes availability reads used by the storefront and drafts.
type Service interface {
	ListAvailability(ctx context.Context, branchID uuid.UUID) ([]ItemAvailability, error)
	GetAvailability(ctx context.Context, inventoryID uuid.UUID) (*ItemAvailability, error)
}

type service struct {
	repo Repository
}

// NewService builds an inventory service backed by the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListAvailability(ctx context.Context, branchID uuid.UUID) ([]ItemAvailability, error) {
	if branchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id required")
	}
	rows, err := s.repo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	items := make([]ItemAvailability, 0, len(rows))
	for _, row := range rows {
		items = append(items, availabilityFromRecord(row))
	}
	return items, nil
}

func (s *service) GetAvailability(ctx context.Context, inventoryID uuid.UUID) (*ItemAvailability, error) {
	if inventoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory id required")
	}
	record, err := s.repo.FindByID(ctx, inventoryID)
	if err != nil {
		if ErrNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return nil, err
	}
	item := availabilityFromRecord(*record)
	return &item, nil
}

func availabilityFromRecord(record models.InventoryRecord) ItemAvailability {
	available := record.Stock
	if available < 0 {
		available = 0
	}
	return ItemAvailability{
		InventoryID:  record.ID,
		ProductID:    record.ProductID,
		Name:         record.Name,
		Slug:         record.Slug,
		Game:         record.Game,
		ImageURL:     record.ImageURL,
		Price:        record.Price,
		Available:    available,
		Availability: enums.AvailabilityFor(record.Stock),
	}
}
