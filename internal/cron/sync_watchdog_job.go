package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
)

const defaultStaleWindow = 24 * time.Hour

type syncStateLister interface {
	List(ctx context.Context) ([]models.SyncState, error)
}

// SyncWatchdogJobParams configure the sync staleness watchdog.
type SyncWatchdogJobParams struct {
	Logger      *logger.Logger
	States      syncStateLister
	StaleWindow time.Duration
}

// NewSyncWatchdogJob builds the job that surfaces terminals whose cursor has
// not moved within the stale window or whose last cycle failed.
func NewSyncWatchdogJob(params SyncWatchdogJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.States == nil {
		return nil, fmt.Errorf("sync state repository required")
	}
	window := params.StaleWindow
	if window <= 0 {
		window = defaultStaleWindow
	}
	return &syncWatchdogJob{
		logg:   params.Logger,
		states: params.States,
		window: window,
		now:    time.Now,
	}, nil
}

type syncWatchdogJob struct {
	logg   *logger.Logger
	states syncStateLister
	window time.Duration
	now    func() time.Time
}

func (j *syncWatchdogJob) Name() string { return "sync-watchdog" }

func (j *syncWatchdogJob) Run(ctx context.Context) error {
	states, err := j.states.List(ctx)
	if err != nil {
		return fmt.Errorf("list sync states: %w", err)
	}

	threshold := j.now().UTC().Add(-j.window)
	stale := 0
	for _, state := range states {
		reason := j.staleReason(state, threshold)
		if reason == "" {
			continue
		}
		stale++
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"pos_id":      state.POSID,
			"last_result": state.LastResult,
			"cursor":      state.Cursor,
			"reason":      reason,
		})
		j.logg.Warn(logCtx, "pos terminal sync is stale")
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"terminals": len(states),
		"stale":     stale,
	})
	j.logg.Info(logCtx, "sync watchdog complete")
	return nil
}

func (j *syncWatchdogJob) staleReason(state models.SyncState, threshold time.Time) string {
	if state.LastResult == enums.SyncResultFailed {
		return "last cycle failed"
	}
	if state.LastRunAt == nil {
		return "never synced"
	}
	if state.LastRunAt.Before(threshold) {
		return "no recent sync attempt"
	}
	return ""
}
