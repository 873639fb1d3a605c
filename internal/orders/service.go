package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/enriquemoya/cardstock-backend/internal/inventory"
	"github.com/enriquemoya/cardstock-backend/internal/ledger"
	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox/payloads"
	"github.com/enriquemoya/cardstock-backend/pkg/pagination"
)

// expireBatchSize caps how many overdue orders one sweep processes.
const expireBatchSize = 100

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes order reads plus the expiration sweep.
type Service interface {
	GetOrder(ctx context.Context, ownerID, orderID uuid.UUID) (*OrderView, error)
	ListOrders(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ExpireDueOrders(ctx context.Context, now time.Time) (int, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory inventory.Repository
	ledger    ledger.Service
	outbox    outboxEmitter
	logg      *logger.Logger
}

// NewService wires the orders service. The outbox emitter and logger may be
// nil when the caller does not publish or log.
func NewService(repo Repository, tx txRunner, inv inventory.Repository, movements ledger.Service, emitter outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if movements == nil {
		return nil, fmt.Errorf("movement ledger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		inventory: inv,
		ledger:    movements,
		outbox:    emitter,
		logg:      logg,
	}, nil
}

// GetOrder returns the order for its owner. An order read past its payment
// deadline is expired in place before it is returned, so callers never see a
// stale pending order the sweep has not reached yet.
func (s *service) GetOrder(ctx context.Context, ownerID, orderID uuid.UUID) (*OrderView, error) {
	if ownerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id and order id are required")
	}

	order, err := s.repo.FindByIDAndOwner(ctx, orderID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}

	now := time.Now()
	if order.Status == enums.OrderStatusPendingPayment && !order.ExpiresAt.After(now) {
		if err := s.expireOrder(ctx, order, now); err != nil {
			return nil, err
		}
		order, err = s.repo.FindByIDAndOwner(ctx, orderID, ownerID)
		if err != nil {
			return nil, err
		}
	}
	return ViewFromModel(order), nil
}

func (s *service) ListOrders(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	rows, nextCursor, err := s.repo.ListByOwner(ctx, ownerID, params)
	if err != nil {
		return nil, err
	}
	list := &OrderList{Orders: make([]OrderView, 0, len(rows)), NextCursor: nextCursor}
	for i := range rows {
		list.Orders = append(list.Orders, *ViewFromModel(&rows[i]))
	}
	return list, nil
}

// ExpireDueOrders cancels every order still awaiting payment past its
// deadline, returning the reserved stock. Each order expires in its own
// transaction so one failure does not hold back the rest of the batch.
func (s *service) ExpireDueOrders(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.FindExpiredPending(ctx, now, expireBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	var lastErr error
	for i := range due {
		if err := s.expireOrder(ctx, &due[i], now); err != nil {
			lastErr = err
			if s.logg != nil {
				logCtx := s.logg.WithField(ctx, "order_id", due[i].ID.String())
				s.logg.Error(logCtx, "order expiration failed", err)
			}
			continue
		}
		expired++
	}
	return expired, lastErr
}

// expireOrder moves one order to cancelled_expired and restocks its holds in a
// single transaction. The conditional status update makes the sweep and the
// lazy read-path expiration safe to race: only one of them restocks.
func (s *service) expireOrder(ctx context.Context, order *models.Order, now time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		moved, err := repo.MarkExpired(ctx, order.ID, now)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}

		reservations, err := repo.FindActiveReservations(ctx, order.ID)
		if err != nil {
			return err
		}

		restocked := 0
		for _, res := range reservations {
			resultStock, err := s.inventory.WithTx(tx).AdjustStock(ctx, res.InventoryID, res.Quantity)
			if err != nil {
				return err
			}
			metadata, err := json.Marshal(map[string]string{"order_id": order.ID.String()})
			if err != nil {
				return err
			}
			_, err = s.ledger.Record(ctx, tx, ledger.RecordMovementInput{
				InventoryID:   res.InventoryID,
				BranchID:      order.BranchID,
				Delta:         res.Quantity,
				ResultStock:   resultStock,
				Source:        enums.MovementSourceExpiration,
				ReferenceType: enums.MovementRefReservation,
				ReferenceID:   res.ID.String(),
				Metadata:      metadata,
			})
			if err != nil {
				return err
			}
			restocked += res.Quantity
		}

		if err := repo.ReleaseReservations(ctx, order.ID, now); err != nil {
			return err
		}

		if s.outbox != nil {
			event := outbox.DomainEvent{
				EventType:     enums.OutboxEventOrderExpired,
				AggregateType: enums.OutboxAggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				OccurredAt:    now,
				Data: payloads.OrderExpiredEvent{
					OrderID:       order.ID,
					OwnerID:       order.OwnerID,
					BranchID:      order.BranchID,
					ExpiredAt:     now,
					RestockedQty:  restocked,
					ReservationNo: len(reservations),
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id":  order.ID.String(),
				"restocked": restocked,
			})
			s.logg.Info(logCtx, "expired unpaid order")
		}
		return nil
	})
}
