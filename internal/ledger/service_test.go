package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox"
)

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryMovement{}); err != nil {
		t.Fatalf("migrate movements: %v", err)
	}
	return db
}

func TestRecordPersistsMovement(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	emitter := &stubEmitter{}
	svc, err := NewService(NewRepository(db), emitter)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	ctx := context.Background()
	inventoryID := uuid.New()

	err = db.Transaction(func(tx *gorm.DB) error {
		_, rerr := svc.Record(ctx, tx, RecordMovementInput{
			InventoryID:   inventoryID,
			BranchID:      uuid.New(),
			Delta:         -2,
			ResultStock:   3,
			Source:        enums.MovementSourceCheckout,
			ReferenceType: enums.MovementRefOrder,
			ReferenceID:   uuid.NewString(),
		})
		return rerr
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var row models.InventoryMovement
	if err := db.First(&row, "inventory_id = ?", inventoryID).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	if row.Delta != -2 || row.ResultStock != 3 {
		t.Fatalf("unexpected movement %+v", row)
	}
	if row.Flagged {
		t.Fatalf("movement with non-negative result should not be flagged")
	}
	if len(emitter.events) != 0 {
		t.Fatalf("no outbox event expected for unflagged movement")
	}
}

func TestRecordFlagsNegativeResult(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	emitter := &stubEmitter{}
	svc, err := NewService(NewRepository(db), emitter)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	ctx := context.Background()

	err = db.Transaction(func(tx *gorm.DB) error {
		movement, rerr := svc.Record(ctx, tx, RecordMovementInput{
			InventoryID:   uuid.New(),
			BranchID:      uuid.New(),
			Delta:         -5,
			ResultStock:   -2,
			Source:        enums.MovementSourceSync,
			ReferenceType: enums.MovementRefCloudEvent,
			ReferenceID:   "evt-42",
		})
		if rerr != nil {
			return rerr
		}
		if !movement.Flagged {
			t.Fatalf("expected flagged movement")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(emitter.events))
	}
	if emitter.events[0].EventType != enums.OutboxEventMovementFlagged {
		t.Fatalf("unexpected event type %s", emitter.events[0].EventType)
	}
}

func TestRecordValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), nil)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	ctx := context.Background()

	cases := []struct {
		name  string
		input RecordMovementInput
	}{
		{"missing inventory", RecordMovementInput{Delta: 1, Source: enums.MovementSourceManual, ReferenceID: "x"}},
		{"zero delta", RecordMovementInput{InventoryID: uuid.New(), Source: enums.MovementSourceManual, ReferenceID: "x"}},
		{"bad source", RecordMovementInput{InventoryID: uuid.New(), Delta: 1, Source: "mystery", ReferenceID: "x"}},
		{"missing reference", RecordMovementInput{InventoryID: uuid.New(), Delta: 1, Source: enums.MovementSourceManual}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := db.Transaction(func(tx *gorm.DB) error {
				_, rerr := svc.Record(ctx, tx, tc.input)
				return rerr
			})
			if err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
