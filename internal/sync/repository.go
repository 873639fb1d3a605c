package sync

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// StateRepository persists the per-terminal sync cursor.
type StateRepository struct {
	db *gorm.DB
}

func NewStateRepository(db *gorm.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Get loads the cursor row for the terminal, creating a pending zero-cursor
// row on first contact.
func (r *StateRepository) Get(ctx context.Context, posID string) (*models.SyncState, error) {
	var state models.SyncState
	err := r.db.WithContext(ctx).Where("pos_id = ?", posID).First(&state).Error
	if err == nil {
		return &state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	state = models.SyncState{POSID: posID, LastResult: enums.SyncResultPending}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "pos_id"}}, DoNothing: true}).
		Create(&state).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("pos_id = ?", posID).First(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// List returns every known terminal cursor row.
func (r *StateRepository) List(ctx context.Context) ([]models.SyncState, error) {
	var states []models.SyncState
	err := r.db.WithContext(ctx).Order("pos_id ASC").Find(&states).Error
	return states, err
}

// RecordAttempt stamps the start of a cycle without touching the cursor.
func (r *StateRepository) RecordAttempt(ctx context.Context, posID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("pos_id = ?", posID).
		Update("last_run_at", at).Error
}

// RecordSuccess advances the cursor, accumulates the applied counter, and
// clears the pending backlog.
func (r *StateRepository) RecordSuccess(ctx context.Context, posID string, cursor time.Time, applied int) error {
	return r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("pos_id = ?", posID).
		Updates(map[string]any{
			"cursor":        cursor,
			"last_result":   enums.SyncResultOK,
			"last_error":    nil,
			"applied_total": gorm.Expr("applied_total + ?", applied),
			"pending_count": 0,
		}).Error
}

// RecordFailure marks the cycle failed, leaving the cursor untouched so the
// next cycle retries the same window. A negative pending count keeps the
// stored backlog as is; failures before the fetch learn nothing new about it.
func (r *StateRepository) RecordFailure(ctx context.Context, posID string, cause error, pending int) error {
	message := cause.Error()
	if len(message) > 1024 {
		message = message[:1024]
	}
	updates := map[string]any{
		"last_result": enums.SyncResultFailed,
		"last_error":  message,
	}
	if pending >= 0 {
		updates["pending_count"] = pending
	}
	return r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("pos_id = ?", posID).
		Updates(updates).Error
}

// AppliedEventRepository is the idempotency gate backing store.
type AppliedEventRepository struct {
	db *gorm.DB
}

func NewAppliedEventRepository(db *gorm.DB) *AppliedEventRepository {
	return &AppliedEventRepository{db: db}
}

func (r *AppliedEventRepository) ExistsTx(ctx context.Context, tx *gorm.DB, eventID string) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.AppliedEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count > 0, err
}

func (r *AppliedEventRepository) CreateTx(ctx context.Context, tx *gorm.DB, event models.AppliedEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.WithContext(ctx).Create(&event).Error
}
