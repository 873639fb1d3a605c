package sync

import (
	"context"
	"errors"
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
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeFeed struct {
	events   []CloudEvent
	fetchErr error
	acks     [][]string
}

func (f *fakeFeed) FetchPendingEvents(ctx context.Context, posID string, since time.Time) ([]CloudEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	pending := make([]CloudEvent, 0, len(f.events))
	for _, event := range f.events {
		if event.OccurredAt.After(since) {
			pending = append(pending, event)
		}
	}
	return pending, nil
}

func (f *fakeFeed) AcknowledgeEvents(ctx context.Context, posID string, eventIDs []string) error {
	if len(eventIDs) > 0 {
		f.acks = append(f.acks, append([]string{}, eventIDs...))
	}
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:sync_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.InventoryRecord{},
		&models.InventoryMovement{},
		&models.AppliedEvent{},
		&models.SyncState{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestEngine(t *testing.T, db *gorm.DB, feed EventFeed) *Engine {
	t.Helper()
	movements, err := ledger.NewService(ledger.NewRepository(db), nil)
	if err != nil {
		t.Fatalf("build ledger: %v", err)
	}
	engine, err := NewEngine(
		"pos-1",
		feed,
		NewStateRepository(db),
		NewAppliedEventRepository(db),
		inventory.NewRepository(db),
		movements,
		gormTxRunner{db: db},
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return engine
}

func seedRecord(t *testing.T, db *gorm.DB, branchID uuid.UUID, stock int) models.InventoryRecord {
	t.Helper()
	record := models.InventoryRecord{
		ID:        uuid.New(),
		BranchID:  branchID,
		ProductID: uuid.New(),
		Name:      "starter-deck",
		Slug:      "starter-deck-" + uuid.NewString()[:8],
		Game:      "lorcana",
		Price:     decimal.RequireFromString("20.00"),
		Stock:     stock,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return record
}

func loadStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var record models.InventoryRecord
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		t.Fatalf("reload record: %v", err)
	}
	return record.Stock
}

func loadState(t *testing.T, db *gorm.DB) models.SyncState {
	t.Helper()
	var state models.SyncState
	if err := db.First(&state, "pos_id = ?", "pos-1").Error; err != nil {
		t.Fatalf("load state: %v", err)
	}
	return state
}

func TestRunCycleAppliesDeltasAndAdvancesCursor(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	branchID := uuid.New()
	record := seedRecord(t, db, branchID, 10)

	later := time.Now().Add(-time.Minute).UTC().Truncate(time.Millisecond)
	earlier := later.Add(-time.Hour)
	feed := &fakeFeed{events: []CloudEvent{
		{
			EventID:    "evt-sale",
			Type:       enums.InventoryEventOnlineSale,
			OccurredAt: later,
			BranchID:   branchID,
			Lines:      []EventLine{{ProductID: record.ProductID, Quantity: 2}},
		},
		{
			EventID:    "evt-adjust",
			Type:       enums.InventoryEventAdjustment,
			OccurredAt: earlier,
			BranchID:   branchID,
			Lines:      []EventLine{{ProductID: record.ProductID, Quantity: 5}},
		},
	}}
	engine := newTestEngine(t, db, feed)

	result, err := engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if result.Fetched != 2 || result.Applied != 2 || result.Skipped != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if stock := loadStock(t, db, record.ID); stock != 13 {
		t.Fatalf("expected stock 13, got %d", stock)
	}

	state := loadState(t, db)
	if state.LastResult != enums.SyncResultOK {
		t.Fatalf("expected ok result, got %s", state.LastResult)
	}
	if !state.Cursor.Equal(later) {
		t.Fatalf("cursor must land on last fetched occurred_at, got %s", state.Cursor)
	}
	if state.AppliedTotal != 2 {
		t.Fatalf("expected applied_total 2, got %d", state.AppliedTotal)
	}
	if state.PendingCount != 0 {
		t.Fatalf("clean cycle must clear the backlog, got %d", state.PendingCount)
	}
	if len(feed.acks) != 1 || len(feed.acks[0]) != 2 {
		t.Fatalf("expected one ack of both events, got %+v", feed.acks)
	}
	if feed.acks[0][0] != "evt-adjust" || feed.acks[0][1] != "evt-sale" {
		t.Fatalf("expected occurred_at ordering, got %+v", feed.acks[0])
	}
}

func TestRunCycleBreaksOccurredAtTiesByEventID(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	branchID := uuid.New()
	record := seedRecord(t, db, branchID, 10)

	occurred := time.Now().Add(-time.Minute).UTC().Truncate(time.Millisecond)
	// Delivered out of id order on purpose; the engine must re-sort.
	feed := &fakeFeed{events: []CloudEvent{
		{
			EventID:    "evt-b",
			Type:       enums.InventoryEventOnlineSale,
			OccurredAt: occurred,
			BranchID:   branchID,
			Lines:      []EventLine{{ProductID: record.ProductID, Quantity: 2}},
		},
		{
			EventID:    "evt-a",
			Type:       enums.InventoryEventAdjustment,
			OccurredAt: occurred,
			BranchID:   branchID,
			Lines:      []EventLine{{ProductID: record.ProductID, Quantity: 5}},
		},
	}}
	engine := newTestEngine(t, db, feed)

	result, err := engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if result.Applied != 2 {
		t.Fatalf("expected both events applied, got %+v", result)
	}
	if len(feed.acks) != 1 || len(feed.acks[0]) != 2 {
		t.Fatalf("expected one ack of both events, got %+v", feed.acks)
	}
	if feed.acks[0][0] != "evt-a" || feed.acks[0][1] != "evt-b" {
		t.Fatalf("expected ascending event id on equal occurred_at, got %+v", feed.acks[0])
	}

	// Result stocks pin the order: +5 lands first (15), the sale second (13).
	var movements []models.InventoryMovement
	if err := db.Order("created_at ASC").Find(&movements).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements))
	}
	byRef := map[string]int{}
	for _, movement := range movements {
		byRef[movement.ReferenceID] = movement.ResultStock
	}
	if byRef["evt-a"] != 15 || byRef["evt-b"] != 13 {
		t.Fatalf("unexpected application order, result stocks %+v", byRef)
	}
	if stock := loadStock(t, db, record.ID); stock != 13 {
		t.Fatalf("expected final stock 13, got %d", stock)
	}
}

func TestRunCycleReplayIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	branchID := uuid.New()
	record := seedRecord(t, db, branchID, 4)

	occurred := time.Now().Add(-time.Minute).UTC().Truncate(time.Millisecond)
	feed := &fakeFeed{events: []CloudEvent{{
		EventID:    "evt-1",
		Type:       enums.InventoryEventOnlineSale,
		OccurredAt: occurred,
		BranchID:   branchID,
		Lines:      []EventLine{{ProductID: record.ProductID, Quantity: 1}},
	}}}
	engine := newTestEngine(t, db, feed)
	ctx := context.Background()

	if _, err := engine.RunCycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	// Reset the cursor to force a redelivery of the same event.
	if err := db.Model(&models.SyncState{}).Where("pos_id = ?", "pos-1").Update("cursor", occurred.Add(-time.Hour)).Error; err != nil {
		t.Fatalf("rewind cursor: %v", err)
	}

	result, err := engine.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if result.Applied != 0 || result.Skipped != 1 {
		t.Fatalf("expected pure skip on replay, got %+v", result)
	}
	if stock := loadStock(t, db, record.ID); stock != 3 {
		t.Fatalf("replay must not double-apply, got stock %d", stock)
	}

	var movementCount int64
	if err := db.Model(&models.InventoryMovement{}).Count(&movementCount).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if movementCount != 1 {
		t.Fatalf("expected a single movement, got %d", movementCount)
	}
}

func TestRunCycleFlagsNegativeStockWithoutClamping(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	branchID := uuid.New()
	record := seedRecord(t, db, branchID, 1)

	feed := &fakeFeed{events: []CloudEvent{{
		EventID:    "evt-oversell",
		Type:       enums.InventoryEventOnlineSale,
		OccurredAt: time.Now().Add(-time.Minute),
		BranchID:   branchID,
		Lines:      []EventLine{{ProductID: record.ProductID, Quantity: 3}},
	}}}
	engine := newTestEngine(t, db, feed)

	if _, err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if stock := loadStock(t, db, record.ID); stock != -2 {
		t.Fatalf("negative stock must not be clamped, got %d", stock)
	}

	var movement models.InventoryMovement
	if err := db.First(&movement, "inventory_id = ?", record.ID).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	if !movement.Flagged || movement.ResultStock != -2 {
		t.Fatalf("expected flagged movement at -2, got %+v", movement)
	}
}

func TestRunCycleFailureKeepsCursorAndPartialProgress(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	branchID := uuid.New()
	record := seedRecord(t, db, branchID, 5)

	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Millisecond)
	feed := &fakeFeed{events: []CloudEvent{
		{
			EventID:    "evt-good",
			Type:       enums.InventoryEventAdjustment,
			OccurredAt: base,
			BranchID:   branchID,
			Lines:      []EventLine{{ProductID: record.ProductID, Quantity: 2}},
		},
		{
			// No event id: the engine must reject it and fail the cycle.
			Type:       enums.InventoryEventAdjustment,
			OccurredAt: base.Add(time.Minute),
			BranchID:   branchID,
			Lines:      []EventLine{{ProductID: record.ProductID, Quantity: 1}},
		},
	}}
	engine := newTestEngine(t, db, feed)

	if _, err := engine.RunCycle(context.Background()); err == nil {
		t.Fatalf("expected cycle failure")
	}

	state := loadState(t, db)
	if state.LastResult != enums.SyncResultFailed {
		t.Fatalf("expected failed result, got %s", state.LastResult)
	}
	if !state.Cursor.Before(base) {
		t.Fatalf("cursor must stay put on failure, got %s", state.Cursor)
	}
	if state.LastError == nil {
		t.Fatalf("expected last_error to be recorded")
	}
	if stock := loadStock(t, db, record.ID); stock != 7 {
		t.Fatalf("applied events keep their effects, got stock %d", stock)
	}
	if state.PendingCount != 1 {
		t.Fatalf("expected the unapplied remainder recorded as pending, got %d", state.PendingCount)
	}
}

func TestRunCycleFetchErrorMarksFailure(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	feed := &fakeFeed{fetchErr: errors.New("cloud unreachable")}
	engine := newTestEngine(t, db, feed)

	if _, err := engine.RunCycle(context.Background()); err == nil {
		t.Fatalf("expected fetch error to propagate")
	}
	if state := loadState(t, db); state.LastResult != enums.SyncResultFailed {
		t.Fatalf("expected failed result, got %s", state.LastResult)
	}
}
