package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/enriquemoya/cardstock-backend/internal/branches"
	"github.com/enriquemoya/cardstock-backend/internal/drafts"
	"github.com/enriquemoya/cardstock-backend/internal/inventory"
	"github.com/enriquemoya/cardstock-backend/internal/ledger"
	"github.com/enriquemoya/cardstock-backend/internal/orders"
	dbpkg "github.com/enriquemoya/cardstock-backend/pkg/db"
	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox/payloads"
)

// paymentWindow is how long a created order waits for payment before the
// reaper cancels it and returns its stock.
const paymentWindow = 10 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type expirationSweeper interface {
	ExpireDueOrders(ctx context.Context, now time.Time) (int, error)
}

// CheckoutInput captures the conversion request for an active draft.
type CheckoutInput struct {
	DraftID        uuid.UUID
	PaymentMethod  *enums.PaymentMethod
	PickupBranchID *uuid.UUID
}

// Service converts an active draft into an order with reserved stock.
type Service interface {
	CreateOrder(ctx context.Context, ownerID uuid.UUID, input CheckoutInput) (*orders.OrderView, error)
}

type service struct {
	tx         txRunner
	draftRepo  drafts.DraftRepository
	ordersRepo orders.Repository
	inventory  inventory.Repository
	branchRepo branches.Repository
	ledger     ledger.Service
	outbox     outboxPublisher
	sweeper    expirationSweeper
	logg       *logger.Logger
}

// NewService builds the checkout service. The sweeper and logger may be nil.
func NewService(
	tx txRunner,
	draftRepo drafts.DraftRepository,
	ordersRepo orders.Repository,
	inv inventory.Repository,
	branchRepo branches.Repository,
	movements ledger.Service,
	publisher outboxPublisher,
	sweeper expirationSweeper,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if draftRepo == nil {
		return nil, fmt.Errorf("draft repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if branchRepo == nil {
		return nil, fmt.Errorf("branch repository required")
	}
	if movements == nil {
		return nil, fmt.Errorf("movement ledger required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:         tx,
		draftRepo:  draftRepo,
		ordersRepo: ordersRepo,
		inventory:  inv,
		branchRepo: branchRepo,
		ledger:     movements,
		outbox:     publisher,
		sweeper:    sweeper,
		logg:       logg,
	}, nil
}

// CreateOrder converts the owner's draft into a pending order, decrementing
// stock and holding it in reservations. Calling it again for the same draft
// returns the order the first call produced.
func (s *service) CreateOrder(ctx context.Context, ownerID uuid.UUID, input CheckoutInput) (*orders.OrderView, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if input.DraftID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft id is required")
	}
	if input.PaymentMethod != nil && !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	// Overdue orders release their stock before new holds are computed.
	if s.sweeper != nil {
		if _, err := s.sweeper.ExpireDueOrders(ctx, time.Now()); err != nil && s.logg != nil {
			s.logg.Error(ctx, "pre-checkout expiration sweep failed", err)
		}
	}

	if existing, err := s.findExistingOrder(ctx, ownerID, input.DraftID); err != nil || existing != nil {
		return existing, err
	}

	draft, err := s.draftRepo.FindByIDAndOwner(ctx, input.DraftID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeDraftNotFound, "draft not found")
		}
		return nil, err
	}
	if draft.Status != enums.DraftStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeDraftInactive, "draft is no longer active")
	}
	if len(draft.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDraftEmpty, "draft has no items")
	}
	if input.PickupBranchID != nil {
		// The pickup branch may differ from the stock branch; it only has to
		// exist. FindByID reports BRANCH_NOT_FOUND for unknown ids.
		if _, err := s.branchRepo.FindByID(ctx, *input.PickupBranchID); err != nil {
			return nil, err
		}
	}

	var created *models.Order
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		inventoryRepo := s.inventory.WithTx(tx)

		records, err := inventoryRepo.LockByIDs(ctx, inventoryIDs(draft.Items))
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*models.InventoryRecord, len(records))
		for i := range records {
			byID[records[i].ID] = &records[i]
		}

		if err := checkStock(draft.Items, byID); err != nil {
			return err
		}

		now := time.Now()
		order := &models.Order{
			DraftID:        draft.ID,
			OwnerID:        ownerID,
			BranchID:       draft.BranchID,
			PickupBranchID: input.PickupBranchID,
			Status:         enums.OrderStatusPendingPayment,
			PaymentMethod:  input.PaymentMethod,
			Currency:       enums.CurrencyMXN,
			Total:          draftTotal(draft.Items),
			ExpiresAt:      now.Add(paymentWindow),
		}
		if _, err := ordersRepo.Create(ctx, order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(draft.Items))
		reservations := make([]models.Reservation, 0, len(draft.Items))
		for _, line := range draft.Items {
			resultStock, err := inventoryRepo.AdjustStock(ctx, line.InventoryID, -line.Quantity)
			if err != nil {
				return err
			}
			metadata, err := json.Marshal(map[string]string{"draft_id": draft.ID.String()})
			if err != nil {
				return err
			}
			_, err = s.ledger.Record(ctx, tx, ledger.RecordMovementInput{
				InventoryID:   line.InventoryID,
				BranchID:      draft.BranchID,
				Delta:         -line.Quantity,
				ResultStock:   resultStock,
				Source:        enums.MovementSourceCheckout,
				ReferenceType: enums.MovementRefOrder,
				ReferenceID:   order.ID.String(),
				Metadata:      metadata,
			})
			if err != nil {
				return err
			}
			items = append(items, models.OrderItem{
				OrderID:       order.ID,
				InventoryID:   line.InventoryID,
				Quantity:      line.Quantity,
				UnitPrice:     line.UnitPrice,
				NameSnapshot:  line.NameSnapshot,
				ImageSnapshot: line.ImageSnapshot,
			})
			reservations = append(reservations, models.Reservation{
				OrderID:     order.ID,
				InventoryID: line.InventoryID,
				Quantity:    line.Quantity,
				Status:      enums.ReservationStatusActive,
				ExpiresAt:   order.ExpiresAt,
			})
		}

		if err := ordersRepo.CreateItems(ctx, items); err != nil {
			return err
		}
		if err := ordersRepo.CreateReservations(ctx, reservations); err != nil {
			return err
		}
		if err := s.draftRepo.WithTx(tx).UpdateStatus(ctx, draft.ID, enums.DraftStatusConverted); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCreated,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:   order.ID,
				DraftID:   draft.ID,
				OwnerID:   ownerID,
				BranchID:  order.BranchID,
				Total:     order.Total,
				Currency:  order.Currency,
				ItemCount: len(items),
				Status:    order.Status,
				ExpiresAt: order.ExpiresAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		created = order
		return nil
	})
	if txErr != nil {
		// A concurrent checkout of the same draft hit the unique draft_id
		// index first. Its order is the canonical result.
		if dbpkg.IsUniqueViolation(txErr, "idx_orders_draft") || dbpkg.IsUniqueViolation(txErr, "") {
			if existing, err := s.findExistingOrder(ctx, ownerID, input.DraftID); err == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, txErr
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": created.ID.String(),
			"draft_id": draft.ID.String(),
		})
		s.logg.Info(logCtx, "draft converted to order")
	}

	view, err := s.ordersRepo.FindByDraftID(ctx, draft.ID)
	if err != nil {
		return nil, err
	}
	return orders.ViewFromModel(view), nil
}

func (s *service) findExistingOrder(ctx context.Context, ownerID, draftID uuid.UUID) (*orders.OrderView, error) {
	order, err := s.ordersRepo.FindByDraftID(ctx, draftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if order.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return orders.ViewFromModel(order), nil
}

func inventoryIDs(items []models.DraftItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.InventoryID)
	}
	return ids
}

// checkStock verifies every line fits in current stock, reporting every
// shortfall at once so the client can fix the draft in one pass.
func checkStock(items []models.DraftItem, records map[uuid.UUID]*models.InventoryRecord) error {
	type shortfall struct {
		InventoryID uuid.UUID `json:"inventory_id"`
		Requested   int       `json:"requested"`
		Available   int       `json:"available"`
	}
	var shortfalls []shortfall
	for _, item := range items {
		record, ok := records[item.InventoryID]
		if !ok {
			shortfalls = append(shortfalls, shortfall{InventoryID: item.InventoryID, Requested: item.Quantity})
			continue
		}
		if record.Stock < item.Quantity {
			available := record.Stock
			if available < 0 {
				available = 0
			}
			shortfalls = append(shortfalls, shortfall{
				InventoryID: item.InventoryID,
				Requested:   item.Quantity,
				Available:   available,
			})
		}
	}
	if len(shortfalls) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for draft items").
		WithDetails(map[string]any{"items": shortfalls})
}

func draftTotal(items []models.DraftItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
