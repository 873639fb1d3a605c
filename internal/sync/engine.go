package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/enriquemoya/cardstock-backend/internal/inventory"
	"github.com/enriquemoya/cardstock-backend/internal/ledger"
	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
	"github.com/enriquemoya/cardstock-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CycleResult summarizes one sync cycle.
type CycleResult struct {
	Fetched int `json:"fetched"`
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// Engine replays the cloud inventory event log into the local replica.
// Cycles for one terminal run sequentially; the applied-event gate makes
// redelivered events no-ops, so at-least-once delivery yields exactly-once
// effects.
type Engine struct {
	posID     string
	feed      EventFeed
	states    *StateRepository
	applied   *AppliedEventRepository
	inventory inventory.Repository
	ledger    ledger.Service
	tx        txRunner
	metrics   *metrics.SyncMetrics
	logg      *logger.Logger
}

// NewEngine wires the sync engine. Metrics and logger may be nil.
func NewEngine(
	posID string,
	feed EventFeed,
	states *StateRepository,
	applied *AppliedEventRepository,
	inv inventory.Repository,
	movements ledger.Service,
	tx txRunner,
	syncMetrics *metrics.SyncMetrics,
	logg *logger.Logger,
) (*Engine, error) {
	if posID == "" {
		return nil, fmt.Errorf("pos id required")
	}
	if feed == nil {
		return nil, fmt.Errorf("event feed required")
	}
	if states == nil {
		return nil, fmt.Errorf("state repository required")
	}
	if applied == nil {
		return nil, fmt.Errorf("applied event repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if movements == nil {
		return nil, fmt.Errorf("movement ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Engine{
		posID:     posID,
		feed:      feed,
		states:    states,
		applied:   applied,
		inventory: inv,
		ledger:    movements,
		tx:        tx,
		metrics:   syncMetrics,
		logg:      logg,
	}, nil
}

// RunCycle executes one fetch-apply-ack pass. A mid-batch failure keeps the
// effects of already-applied events and leaves the cursor where it was, so the
// next cycle refetches the same window and the gate skips what already landed.
func (e *Engine) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveCycle(time.Since(start)) }()

	state, err := e.states.Get(ctx, e.posID)
	if err != nil {
		return nil, err
	}
	if err := e.states.RecordAttempt(ctx, e.posID, start); err != nil {
		return nil, err
	}

	events, err := e.feed.FetchPendingEvents(ctx, e.posID, state.Cursor)
	if err != nil {
		return nil, e.fail(ctx, err, -1)
	}

	// The feed promises ascending occurred_at but the order is re-derived
	// here: event id breaks ties so replays are deterministic.
	sort.Slice(events, func(i, j int) bool {
		if events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].EventID < events[j].EventID
		}
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})

	result := &CycleResult{Fetched: len(events)}
	appliedIDs := make([]string, 0, len(events))
	for _, event := range events {
		applied, err := e.applyEvent(ctx, event)
		if err != nil {
			return result, e.fail(ctx, err, result.Fetched-result.Applied-result.Skipped)
		}
		if applied {
			result.Applied++
			e.metrics.IncApplied(event.Type.String())
			appliedIDs = append(appliedIDs, event.EventID)
		} else {
			result.Skipped++
			e.metrics.IncSkipped()
		}
	}

	if err := e.feed.AcknowledgeEvents(ctx, e.posID, appliedIDs); err != nil && e.logg != nil {
		e.logg.Warn(e.logg.WithField(ctx, "pos_id", e.posID), "cloud event ack failed")
	}

	cursor := state.Cursor
	if len(events) > 0 {
		cursor = events[len(events)-1].OccurredAt
	}
	if err := e.states.RecordSuccess(ctx, e.posID, cursor, result.Applied); err != nil {
		return result, err
	}
	e.metrics.SetCursorLag(time.Since(cursor))

	if e.logg != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"pos_id":  e.posID,
			"fetched": result.Fetched,
			"applied": result.Applied,
			"skipped": result.Skipped,
		})
		e.logg.Info(logCtx, "sync cycle finished")
	}
	return result, nil
}

// fail records the failed cycle. pending is the number of fetched events left
// unapplied, or negative when the failure happened before anything was fetched.
func (e *Engine) fail(ctx context.Context, cause error, pending int) error {
	e.metrics.IncFailure()
	if err := e.states.RecordFailure(ctx, e.posID, cause, pending); err != nil && e.logg != nil {
		e.logg.Error(ctx, "recording sync failure", err)
	}
	return cause
}

// applyEvent applies one event in its own transaction. The stock mutation and
// the applied-event marker commit together or not at all.
func (e *Engine) applyEvent(ctx context.Context, event CloudEvent) (bool, error) {
	if event.EventID == "" {
		return false, fmt.Errorf("event without id at %s", event.OccurredAt)
	}

	applied := false
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		exists, err := e.applied.ExistsTx(ctx, tx, event.EventID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		if event.Type.MutatesStock() {
			if err := e.applyLines(ctx, tx, event); err != nil {
				return err
			}
		}

		marker := models.AppliedEvent{
			EventID:    event.EventID,
			EventType:  event.Type,
			OccurredAt: event.OccurredAt,
		}
		if err := e.applied.CreateTx(ctx, tx, marker); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func (e *Engine) applyLines(ctx context.Context, tx *gorm.DB, event CloudEvent) error {
	inventoryRepo := e.inventory.WithTx(tx)
	for _, line := range event.Lines {
		record, err := inventoryRepo.FindByProduct(ctx, event.BranchID, line.ProductID)
		if err != nil {
			if inventory.ErrNotFound(err) {
				// The replica has no row for this product yet. The event
				// still counts as applied; the cloud catalog sync owns
				// creating records.
				if e.logg != nil {
					logCtx := e.logg.WithFields(ctx, map[string]any{
						"event_id":   event.EventID,
						"product_id": line.ProductID.String(),
					})
					e.logg.Warn(logCtx, "sync event references unknown product")
				}
				continue
			}
			return err
		}

		delta := line.Quantity
		if event.Type == enums.InventoryEventOnlineSale {
			delta = -line.Quantity
		}
		if delta == 0 {
			continue
		}

		resultStock, err := inventoryRepo.AdjustStock(ctx, record.ID, delta)
		if err != nil {
			return err
		}
		metadata, err := json.Marshal(map[string]string{"event_type": event.Type.String()})
		if err != nil {
			return err
		}
		movement, err := e.ledger.Record(ctx, tx, ledger.RecordMovementInput{
			InventoryID:   record.ID,
			BranchID:      event.BranchID,
			Delta:         delta,
			ResultStock:   resultStock,
			Source:        enums.MovementSourceSync,
			ReferenceType: enums.MovementRefCloudEvent,
			ReferenceID:   event.EventID,
			Metadata:      metadata,
		})
		if err != nil {
			return err
		}
		if movement.Flagged {
			e.metrics.IncFlagged()
		}
	}
	return nil
}
