package drafts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/enriquemoya/cardstock-backend/internal/branches"
	"github.com/enriquemoya/cardstock-backend/internal/inventory"
	dbpkg "github.com/enriquemoya/cardstock-backend/pkg/db"
	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RemovedItem explains why revalidation dropped a draft line.
type RemovedItem struct {
	InventoryID uuid.UUID           `json:"inventoryId"`
	Name        string              `json:"name"`
	Quantity    int                 `json:"quantity"`
	Reason      enums.RemovalReason `json:"reason"`
}

// DraftView is the draft plus the availability snapshot of its lines and any
// lines revalidation removed.
type DraftView struct {
	Draft        *models.Draft                    `json:"draft"`
	Items        []DraftItemView                  `json:"items"`
	RemovedItems []RemovedItem                    `json:"removedItems,omitempty"`
	Availability map[uuid.UUID]enums.Availability `json:"-"`
}

// DraftItemView pairs a stored line with current availability.
type DraftItemView struct {
	Item         models.DraftItem   `json:"item"`
	Availability enums.Availability `json:"availability"`
}

// UpsertDraftInput captures the wholesale item replacement for a draft.
type UpsertDraftInput struct {
	BranchID uuid.UUID
	Items    []ItemInput
}

// ItemInput is one requested draft line.
type ItemInput struct {
	InventoryID uuid.UUID
	Quantity    int
}

// Service exposes draft operations.
type Service interface {
	UpsertDraft(ctx context.Context, ownerID uuid.UUID, input UpsertDraftInput) (*DraftView, error)
	GetActiveDraft(ctx context.Context, ownerID uuid.UUID) (*DraftView, error)
	RevalidateItems(ctx context.Context, items []ItemInput) (*RevalidationResult, error)
}

// ItemSnapshot is the live availability of one requested line.
type ItemSnapshot struct {
	InventoryID  uuid.UUID          `json:"inventoryId"`
	Name         string             `json:"name"`
	Quantity     int                `json:"quantity"`
	UnitPrice    decimal.Decimal    `json:"unitPrice"`
	Available    int                `json:"available"`
	Availability enums.Availability `json:"availability"`
}

// RevalidationResult reports which requested lines survive against current
// inventory. Nothing is persisted.
type RevalidationResult struct {
	Items        []ItemSnapshot `json:"items"`
	RemovedItems []RemovedItem  `json:"removedItems,omitempty"`
}

type service struct {
	repo       DraftRepository
	tx         txRunner
	inventory  inventory.Repository
	branchRepo branches.Repository
}

// NewService builds a draft service backed by the provided stack.
func NewService(repo DraftRepository, tx txRunner, inv inventory.Repository, branchRepo branches.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("draft repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if branchRepo == nil {
		return nil, fmt.Errorf("branch repository required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		inventory:  inv,
		branchRepo: branchRepo,
	}, nil
}

// UpsertDraft creates the owner's active draft if needed and replaces its
// items wholesale. Prices and names are snapshot at this moment. Lines whose
// record is gone or whose stock no longer covers the quantity are not
// persisted; they come back in RemovedItems with the reason.
func (s *service) UpsertDraft(ctx context.Context, ownerID uuid.UUID, input UpsertDraftInput) (*DraftView, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if input.BranchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id is required")
	}
	for _, item := range input.Items {
		if item.InventoryID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item inventory id is required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
	}

	if _, err := s.branchRepo.FindByID(ctx, input.BranchID); err != nil {
		return nil, err
	}

	var view *DraftView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv := s.inventory.WithTx(tx)

		draft, err := s.findOrCreateActive(ctx, repo, ownerID, input.BranchID)
		if err != nil {
			return err
		}

		items := make([]models.DraftItem, 0, len(input.Items))
		removed := make([]RemovedItem, 0)
		availability := make(map[uuid.UUID]enums.Availability, len(input.Items))
		for _, payload := range input.Items {
			record, err := inv.FindByID(ctx, payload.InventoryID)
			if err != nil {
				if inventory.ErrNotFound(err) {
					removed = append(removed, RemovedItem{
						InventoryID: payload.InventoryID,
						Quantity:    payload.Quantity,
						Reason:      enums.RemovalReasonMissing,
					})
					continue
				}
				return err
			}
			if record.BranchID != input.BranchID {
				return pkgerrors.New(pkgerrors.CodeValidation, "inventory record belongs to another branch")
			}
			if record.Stock < payload.Quantity {
				removed = append(removed, RemovedItem{
					InventoryID: record.ID,
					Name:        record.Name,
					Quantity:    payload.Quantity,
					Reason:      enums.RemovalReasonInsufficient,
				})
				continue
			}
			items = append(items, models.DraftItem{
				InventoryID:   record.ID,
				Quantity:      payload.Quantity,
				UnitPrice:     record.Price,
				NameSnapshot:  record.Name,
				ImageSnapshot: record.ImageURL,
			})
			availability[record.ID] = enums.AvailabilityFor(record.Stock)
		}

		if err := repo.ReplaceItems(ctx, draft.ID, items); err != nil {
			return err
		}

		fresh, err := repo.FindByIDAndOwner(ctx, draft.ID, ownerID)
		if err != nil {
			return err
		}
		view = buildView(fresh, availability, removed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// GetActiveDraft returns the owner's active draft after revalidating every
// line against current inventory. Lines whose records vanished or no longer
// cover the requested quantity are removed and reported.
func (s *service) GetActiveDraft(ctx context.Context, ownerID uuid.UUID) (*DraftView, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}

	var view *DraftView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv := s.inventory.WithTx(tx)

		draft, err := repo.FindActiveByOwner(ctx, ownerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeDraftNotFound, "no active draft for owner")
			}
			return err
		}

		kept := make([]models.DraftItem, 0, len(draft.Items))
		removed := make([]RemovedItem, 0)
		availability := make(map[uuid.UUID]enums.Availability, len(draft.Items))
		for _, item := range draft.Items {
			record, err := inv.FindByID(ctx, item.InventoryID)
			if err != nil {
				if inventory.ErrNotFound(err) {
					removed = append(removed, RemovedItem{
						InventoryID: item.InventoryID,
						Name:        item.NameSnapshot,
						Quantity:    item.Quantity,
						Reason:      enums.RemovalReasonMissing,
					})
					continue
				}
				return err
			}
			if record.Stock < item.Quantity {
				removed = append(removed, RemovedItem{
					InventoryID: item.InventoryID,
					Name:        item.NameSnapshot,
					Quantity:    item.Quantity,
					Reason:      enums.RemovalReasonInsufficient,
				})
				continue
			}
			availability[item.InventoryID] = enums.AvailabilityFor(record.Stock)
			kept = append(kept, item)
		}

		if len(removed) > 0 {
			stripped := make([]models.DraftItem, len(kept))
			for i, item := range kept {
				stripped[i] = models.DraftItem{
					InventoryID:   item.InventoryID,
					Quantity:      item.Quantity,
					UnitPrice:     item.UnitPrice,
					NameSnapshot:  item.NameSnapshot,
					ImageSnapshot: item.ImageSnapshot,
				}
			}
			if err := repo.ReplaceItems(ctx, draft.ID, stripped); err != nil {
				return err
			}
			draft, err = repo.FindByIDAndOwner(ctx, draft.ID, ownerID)
			if err != nil {
				return err
			}
		}

		view = buildView(draft, availability, removed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// RevalidateItems computes live availability for the requested lines without
// touching any draft. Lines referencing missing records or more stock than is
// available are reported as removed.
func (s *service) RevalidateItems(ctx context.Context, items []ItemInput) (*RevalidationResult, error) {
	for _, item := range items {
		if item.InventoryID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item inventory id is required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
	}

	result := &RevalidationResult{Items: make([]ItemSnapshot, 0, len(items))}
	for _, item := range items {
		record, err := s.inventory.FindByID(ctx, item.InventoryID)
		if err != nil {
			if inventory.ErrNotFound(err) {
				result.RemovedItems = append(result.RemovedItems, RemovedItem{
					InventoryID: item.InventoryID,
					Quantity:    item.Quantity,
					Reason:      enums.RemovalReasonMissing,
				})
				continue
			}
			return nil, err
		}
		if record.Stock < item.Quantity {
			result.RemovedItems = append(result.RemovedItems, RemovedItem{
				InventoryID: item.InventoryID,
				Name:        record.Name,
				Quantity:    item.Quantity,
				Reason:      enums.RemovalReasonInsufficient,
			})
			continue
		}
		result.Items = append(result.Items, ItemSnapshot{
			InventoryID:  record.ID,
			Name:         record.Name,
			Quantity:     item.Quantity,
			UnitPrice:    record.Price,
			Available:    record.Stock,
			Availability: enums.AvailabilityFor(record.Stock),
		})
	}
	return result, nil
}

// findOrCreateActive returns the owner's active draft, creating it when
// missing. A concurrent create loses to the partial unique index and falls
// back to the winner's row.
func (s *service) findOrCreateActive(ctx context.Context, repo DraftRepository, ownerID, branchID uuid.UUID) (*models.Draft, error) {
	draft, err := repo.FindActiveByOwner(ctx, ownerID)
	if err == nil {
		if draft.BranchID != branchID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "active draft belongs to another branch")
		}
		return draft, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created, err := repo.Create(ctx, &models.Draft{
		OwnerID:  ownerID,
		BranchID: branchID,
		Status:   enums.DraftStatusActive,
		Currency: enums.CurrencyMXN,
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_drafts_owner_active") || dbpkg.IsUniqueViolation(err, "") {
			return repo.FindActiveByOwner(ctx, ownerID)
		}
		return nil, err
	}
	return created, nil
}

func buildView(draft *models.Draft, availability map[uuid.UUID]enums.Availability, removed []RemovedItem) *DraftView {
	items := make([]DraftItemView, 0, len(draft.Items))
	for _, item := range draft.Items {
		items = append(items, DraftItemView{
			Item:         item,
			Availability: availability[item.InventoryID],
		})
	}
	if len(removed) == 0 {
		removed = nil
	}
	return &DraftView{
		Draft:        draft,
		Items:        items,
		RemovedItems: removed,
		Availability: availability,
	}
}
