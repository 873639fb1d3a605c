package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/enriquemoya/cardstock-backend/internal/branches"
	"github.com/enriquemoya/cardstock-backend/internal/drafts"
	"github.com/enriquemoya/cardstock-backend/internal/inventory"
	"github.com/enriquemoya/cardstock-backend/internal/ledger"
	"github.com/enriquemoya/cardstock-backend/internal/orders"
	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubSweeper struct {
	calls int
}

func (s *stubSweeper) ExpireDueOrders(ctx context.Context, now time.Time) (int, error) {
	s.calls++
	return 0, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Branch{},
		&models.InventoryRecord{},
		&models.InventoryMovement{},
		&models.Draft{},
		&models.DraftItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Reservation{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, sweeper expirationSweeper) Service {
	t.Helper()
	movements, err := ledger.NewService(ledger.NewRepository(db), nil)
	if err != nil {
		t.Fatalf("build ledger: %v", err)
	}
	svc, err := NewService(
		gormTxRunner{db: db},
		drafts.NewRepository(db),
		orders.NewRepository(db),
		inventory.NewRepository(db),
		branches.NewRepository(db),
		movements,
		outbox.NewService(outbox.NewRepository(db), nil),
		sweeper,
		nil,
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func seedInventory(t *testing.T, db *gorm.DB, branchID uuid.UUID, price string, stock int) models.InventoryRecord {
	t.Helper()
	record := models.InventoryRecord{
		ID:        uuid.New(),
		BranchID:  branchID,
		ProductID: uuid.New(),
		Name:      "display-case",
		Slug:      "display-case-" + uuid.NewString()[:8],
		Game:      "yugioh",
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return record
}

func seedDraft(t *testing.T, db *gorm.DB, ownerID, branchID uuid.UUID, status enums.DraftStatus, lines map[uuid.UUID]int) models.Draft {
	t.Helper()
	draft := models.Draft{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		BranchID: branchID,
		Status:   status,
	}
	if err := db.Create(&draft).Error; err != nil {
		t.Fatalf("seed draft: %v", err)
	}
	for inventoryID, qty := range lines {
		var record models.InventoryRecord
		if err := db.First(&record, "id = ?", inventoryID).Error; err != nil {
			t.Fatalf("load record: %v", err)
		}
		item := models.DraftItem{
			ID:           uuid.New(),
			DraftID:      draft.ID,
			InventoryID:  inventoryID,
			Quantity:     qty,
			UnitPrice:    record.Price,
			NameSnapshot: record.Name,
		}
		if err := db.Create(&item).Error; err != nil {
			t.Fatalf("seed draft item: %v", err)
		}
	}
	return draft
}

func TestCreateOrderConvertsDraft(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sweeper := &stubSweeper{}
	svc := newTestService(t, db, sweeper)
	ctx := context.Background()
	ownerID := uuid.New()
	branchID := uuid.New()

	record := seedInventory(t, db, branchID, "25.00", 5)
	draft := seedDraft(t, db, ownerID, branchID, enums.DraftStatusActive, map[uuid.UUID]int{record.ID: 2})

	view, err := svc.CreateOrder(ctx, ownerID, CheckoutInput{DraftID: draft.ID})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected pre-checkout sweep, got %d calls", sweeper.calls)
	}
	if view.Status != enums.OrderStatusPendingPayment {
		t.Fatalf("expected pending_payment, got %s", view.Status)
	}
	if !view.Total.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("unexpected total %s", view.Total)
	}
	if until := time.Until(view.ExpiresAt); until < 9*24*time.Hour || until > 11*24*time.Hour {
		t.Fatalf("expected roughly ten day payment window, got %s", until)
	}
	if len(view.Items) != 1 || view.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", view.Items)
	}

	var inv models.InventoryRecord
	if err := db.First(&inv, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("reload inventory: %v", err)
	}
	if inv.Stock != 3 {
		t.Fatalf("expected stock 3 after checkout, got %d", inv.Stock)
	}

	var movement models.InventoryMovement
	if err := db.First(&movement, "inventory_id = ?", record.ID).Error; err != nil {
		t.Fatalf("reload movement: %v", err)
	}
	if movement.Source != enums.MovementSourceCheckout || movement.Delta != -2 || movement.ResultStock != 3 {
		t.Fatalf("unexpected movement %+v", movement)
	}

	var res models.Reservation
	if err := db.First(&res, "order_id = ?", view.ID).Error; err != nil {
		t.Fatalf("reload reservation: %v", err)
	}
	if res.Status != enums.ReservationStatusActive || res.Quantity != 2 {
		t.Fatalf("unexpected reservation %+v", res)
	}

	var reloadedDraft models.Draft
	if err := db.First(&reloadedDraft, "id = ?", draft.ID).Error; err != nil {
		t.Fatalf("reload draft: %v", err)
	}
	if reloadedDraft.Status != enums.DraftStatusConverted {
		t.Fatalf("expected converted draft, got %s", reloadedDraft.Status)
	}

	var outboxCount int64
	err = db.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.OutboxEventOrderCreated, view.ID).
		Count(&outboxCount).Error
	if err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if outboxCount != 1 {
		t.Fatalf("expected 1 order.created event, got %d", outboxCount)
	}
}

func TestCreateOrderIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()
	ownerID := uuid.New()
	branchID := uuid.New()

	record := seedInventory(t, db, branchID, "10.00", 4)
	draft := seedDraft(t, db, ownerID, branchID, enums.DraftStatusActive, map[uuid.UUID]int{record.ID: 1})

	first, err := svc.CreateOrder(ctx, ownerID, CheckoutInput{DraftID: draft.ID})
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.CreateOrder(ctx, ownerID, CheckoutInput{DraftID: draft.ID})
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same order, got %s and %s", first.ID, second.ID)
	}

	var inv models.InventoryRecord
	if err := db.First(&inv, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("reload inventory: %v", err)
	}
	if inv.Stock != 3 {
		t.Fatalf("stock must decrement once, got %d", inv.Stock)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()
	ownerID := uuid.New()
	branchID := uuid.New()

	record := seedInventory(t, db, branchID, "12.00", 1)
	draft := seedDraft(t, db, ownerID, branchID, enums.DraftStatusActive, map[uuid.UUID]int{record.ID: 3})

	_, err := svc.CreateOrder(ctx, ownerID, CheckoutInput{DraftID: draft.ID})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var inv models.InventoryRecord
	if err := db.First(&inv, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("reload inventory: %v", err)
	}
	if inv.Stock != 1 {
		t.Fatalf("stock must be untouched on rejection, got %d", inv.Stock)
	}

	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no order rows, got %d", orderCount)
	}
}

func TestCreateOrderDraftGuards(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()
	ownerID := uuid.New()
	branchID := uuid.New()

	if _, err := svc.CreateOrder(ctx, ownerID, CheckoutInput{DraftID: uuid.New()}); !pkgerrors.HasCode(err, pkgerrors.CodeDraftNotFound) {
		t.Fatalf("expected draft not found, got %v", err)
	}

	converted := seedDraft(t, db, ownerID, branchID, enums.DraftStatusConverted, nil)
	if _, err := svc.CreateOrder(ctx, ownerID, CheckoutInput{DraftID: converted.ID}); !pkgerrors.HasCode(err, pkgerrors.CodeDraftInactive) {
		t.Fatalf("expected inactive draft, got %v", err)
	}

	empty := seedDraft(t, db, uuid.New(), branchID, enums.DraftStatusActive, nil)
	if _, err := svc.CreateOrder(ctx, empty.OwnerID, CheckoutInput{DraftID: empty.ID}); !pkgerrors.HasCode(err, pkgerrors.CodeDraftEmpty) {
		t.Fatalf("expected empty draft, got %v", err)
	}

	record := seedInventory(t, db, branchID, "5.00", 2)
	unknownBranch := uuid.New()
	draft := seedDraft(t, db, uuid.New(), branchID, enums.DraftStatusActive, map[uuid.UUID]int{record.ID: 1})
	if _, err := svc.CreateOrder(ctx, draft.OwnerID, CheckoutInput{DraftID: draft.ID, PickupBranchID: &unknownBranch}); !pkgerrors.HasCode(err, pkgerrors.CodeBranchNotFound) {
		t.Fatalf("expected branch not found, got %v", err)
	}
}

func TestCreateOrderVerifiesPickupBranch(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()
	ownerID := uuid.New()
	branchID := uuid.New()

	pickup := models.Branch{
		ID:     uuid.New(),
		Name:   "Sucursal Norte",
		Slug:   "norte-" + uuid.NewString()[:8],
		Active: true,
	}
	if err := db.Create(&pickup).Error; err != nil {
		t.Fatalf("seed branch: %v", err)
	}

	record := seedInventory(t, db, branchID, "30.00", 4)
	draft := seedDraft(t, db, ownerID, branchID, enums.DraftStatusActive, map[uuid.UUID]int{record.ID: 1})

	view, err := svc.CreateOrder(ctx, ownerID, CheckoutInput{DraftID: draft.ID, PickupBranchID: &pickup.ID})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	var order models.Order
	if err := db.First(&order, "id = ?", view.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if order.PickupBranchID == nil || *order.PickupBranchID != pickup.ID {
		t.Fatalf("expected pickup branch %s recorded, got %v", pickup.ID, order.PickupBranchID)
	}
	if order.BranchID != branchID {
		t.Fatalf("stock branch must stay the draft branch, got %s", order.BranchID)
	}

	var res models.Reservation
	if err := db.First(&res, "order_id = ?", view.ID).Error; err != nil {
		t.Fatalf("reload reservation: %v", err)
	}
	if !res.ExpiresAt.Equal(order.ExpiresAt) {
		t.Fatalf("reservation expiry %s must match order expiry %s", res.ExpiresAt, order.ExpiresAt)
	}
}
