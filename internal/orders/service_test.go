package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/enriquemoya/cardstock-backend/internal/inventory"
	"github.com/enriquemoya/cardstock-backend/internal/ledger"
	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox"
	"github.com/enriquemoya/cardstock-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.InventoryRecord{},
		&models.InventoryMovement{},
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

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	movements, err := ledger.NewService(ledger.NewRepository(db), nil)
	if err != nil {
		t.Fatalf("build ledger: %v", err)
	}
	svc, err := NewService(
		NewRepository(db),
		gormTxRunner{db: db},
		inventory.NewRepository(db),
		movements,
		outbox.NewService(outbox.NewRepository(db), nil),
		nil,
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func seedInventory(t *testing.T, db *gorm.DB, stock int) models.InventoryRecord {
	t.Helper()
	record := models.InventoryRecord{
		ID:        uuid.New(),
		BranchID:  uuid.New(),
		ProductID: uuid.New(),
		Name:      "booster-box",
		Slug:      "booster-box-" + uuid.NewString()[:8],
		Game:      "pokemon",
		Price:     decimal.RequireFromString("45.00"),
		Stock:     stock,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return record
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, expiresAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		ID:        uuid.New(),
		DraftID:   uuid.New(),
		OwnerID:   uuid.New(),
		BranchID:  uuid.New(),
		Status:    status,
		Currency:  enums.CurrencyMXN,
		Total:     decimal.RequireFromString("90.00"),
		ExpiresAt: expiresAt,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func seedReservation(t *testing.T, db *gorm.DB, orderID, inventoryID uuid.UUID, qty int) models.Reservation {
	t.Helper()
	res := models.Reservation{
		ID:          uuid.New(),
		OrderID:     orderID,
		InventoryID: inventoryID,
		Quantity:    qty,
		Status:      enums.ReservationStatusActive,
		ExpiresAt:   time.Now().Add(240 * time.Hour),
	}
	if err := db.Create(&res).Error; err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	return res
}

func TestExpireDueOrdersRestocksAndReleases(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	record := seedInventory(t, db, 1)
	order := seedOrder(t, db, enums.OrderStatusPendingPayment, time.Now().Add(-time.Hour))
	seedReservation(t, db, order.ID, record.ID, 2)

	expired, err := svc.ExpireDueOrders(ctx, time.Now())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired order, got %d", expired)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.Status != enums.OrderStatusCancelledExpired {
		t.Fatalf("expected cancelled_expired, got %s", reloaded.Status)
	}
	if reloaded.CancelledAt == nil {
		t.Fatalf("expected cancelled_at to be stamped")
	}

	var res models.Reservation
	if err := db.First(&res, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload reservation: %v", err)
	}
	if res.Status != enums.ReservationStatusReleased || res.ReleasedAt == nil {
		t.Fatalf("expected released reservation, got %+v", res)
	}

	var inv models.InventoryRecord
	if err := db.First(&inv, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("reload inventory: %v", err)
	}
	if inv.Stock != 3 {
		t.Fatalf("expected stock restored to 3, got %d", inv.Stock)
	}

	var movement models.InventoryMovement
	if err := db.First(&movement, "inventory_id = ?", record.ID).Error; err != nil {
		t.Fatalf("reload movement: %v", err)
	}
	if movement.Source != enums.MovementSourceExpiration || movement.Delta != 2 || movement.ResultStock != 3 {
		t.Fatalf("unexpected movement: %+v", movement)
	}

	var outboxCount int64
	err = db.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.OutboxEventOrderExpired, order.ID).
		Count(&outboxCount).Error
	if err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if outboxCount != 1 {
		t.Fatalf("expected 1 order.expired event, got %d", outboxCount)
	}
}

func TestExpireDueOrdersLeavesPaidOrdersAlone(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	order := seedOrder(t, db, enums.OrderStatusPaid, time.Now().Add(-time.Hour))

	expired, err := svc.ExpireDueOrders(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected no expirations, got %d", expired)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.Status != enums.OrderStatusPaid {
		t.Fatalf("paid order must keep its status, got %s", reloaded.Status)
	}
}

func TestGetOrderExpiresOverdueOrderOnRead(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	record := seedInventory(t, db, 5)
	order := seedOrder(t, db, enums.OrderStatusPendingPayment, time.Now().Add(-time.Minute))
	seedReservation(t, db, order.ID, record.ID, 1)

	view, err := svc.GetOrder(ctx, order.OwnerID, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if view.Status != enums.OrderStatusCancelledExpired {
		t.Fatalf("expected lazy expiration, got %s", view.Status)
	}

	var inv models.InventoryRecord
	if err := db.First(&inv, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("reload inventory: %v", err)
	}
	if inv.Stock != 6 {
		t.Fatalf("expected restock to 6, got %d", inv.Stock)
	}
}

func TestGetOrderScopesToOwner(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	order := seedOrder(t, db, enums.OrderStatusPendingPayment, time.Now().Add(time.Hour))

	if _, err := svc.GetOrder(context.Background(), uuid.New(), order.ID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
}

func TestListOrdersPaginates(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	ownerID := uuid.New()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		order := models.Order{
			ID:        uuid.New(),
			DraftID:   uuid.New(),
			OwnerID:   ownerID,
			BranchID:  uuid.New(),
			Status:    enums.OrderStatusPaid,
			Currency:  enums.CurrencyMXN,
			Total:     decimal.RequireFromString("10.00"),
			ExpiresAt: time.Now().Add(time.Hour),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(&order).Error; err != nil {
			t.Fatalf("seed order %d: %v", i, err)
		}
	}

	first, err := svc.ListOrders(ctx, ownerID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Orders) != 2 || first.NextCursor == "" {
		t.Fatalf("expected full first page with cursor, got %d orders", len(first.Orders))
	}
	if first.Orders[0].CreatedAt.Before(first.Orders[1].CreatedAt) {
		t.Fatalf("expected newest first ordering")
	}

	second, err := svc.ListOrders(ctx, ownerID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Orders) != 1 || second.NextCursor != "" {
		t.Fatalf("expected final page of 1, got %d with cursor %q", len(second.Orders), second.NextCursor)
	}
}
