package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox/payloads"
)

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service records immutable stock movements.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordMovementInput) (*models.InventoryMovement, error)
}

type service struct {
	repo   Repository
	outbox outboxEmitter
}

// RecordMovementInput captures a single stock delta and its origin.
type RecordMovementInput struct {
	InventoryID   uuid.UUID
	BranchID      uuid.UUID
	Delta         int
	ResultStock   int
	Source        enums.MovementSource
	ReferenceType enums.MovementReferenceType
	ReferenceID   string
	Metadata      json.RawMessage
}

// NewService wires a ledger service. The outbox emitter may be nil when the
// caller does not publish flagged movements.
func NewService(repo Repository, emitter outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	return &service{repo: repo, outbox: emitter}, nil
}

// Record writes the movement row inside the caller's transaction. A movement
// whose resulting stock is negative is flagged for review and, when an outbox
// emitter is wired, published for downstream alerting.
func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordMovementInput) (*models.InventoryMovement, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.InventoryID == uuid.Nil {
		return nil, fmt.Errorf("inventory id is required")
	}
	if input.Delta == 0 {
		return nil, fmt.Errorf("movement delta must be non-zero")
	}
	if !input.Source.IsValid() {
		return nil, fmt.Errorf("invalid movement source %q", input.Source)
	}
	if input.ReferenceID == "" {
		return nil, fmt.Errorf("movement reference id is required")
	}

	movement := &models.InventoryMovement{
		InventoryID:   input.InventoryID,
		BranchID:      input.BranchID,
		Delta:         input.Delta,
		ResultStock:   input.ResultStock,
		Source:        input.Source,
		ReferenceType: input.ReferenceType,
		ReferenceID:   input.ReferenceID,
		Flagged:       input.ResultStock < 0,
		Metadata:      input.Metadata,
	}
	if err := s.repo.WithTx(tx).Create(ctx, movement); err != nil {
		return nil, err
	}

	if movement.Flagged && s.outbox != nil {
		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventMovementFlagged,
			AggregateType: enums.OutboxAggregateMovement,
			AggregateID:   movement.ID,
			Version:       1,
			Data: payloads.MovementFlaggedEvent{
				MovementID:  movement.ID,
				InventoryID: movement.InventoryID,
				BranchID:    movement.BranchID,
				Delta:       movement.Delta,
				ResultStock: movement.ResultStock,
				Source:      movement.Source,
				ReferenceID: movement.ReferenceID,
				OccurredAt:  movement.CreatedAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return nil, err
		}
	}

	return movement, nil
}
