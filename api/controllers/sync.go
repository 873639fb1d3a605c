package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/enriquemoya/cardstock-backend/api/responses"
	syncpkg "github.com/enriquemoya/cardstock-backend/internal/sync"
	"github.com/enriquemoya/cardstock-backend/pkg/db/models"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
)

type syncStateGetter interface {
	Get(ctx context.Context, posID string) (*models.SyncState, error)
}

type syncCycleRunner interface {
	RunCycle(ctx context.Context) (*syncpkg.CycleResult, error)
}

// SyncRun triggers one fetch-apply-ack pass against the cloud feed. The
// terminal's background loop stays the primary driver; this is the manual
// "sync now" path.
func SyncRun(engine syncCycleRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "sync engine not configured on this terminal"))
			return
		}

		result, err := engine.RunCycle(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync cycle failed"))
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type syncStatusResponse struct {
	POSID        string     `json:"pos_id"`
	Cursor       time.Time  `json:"cursor"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	LastResult   string     `json:"last_result"`
	LastError    *string    `json:"last_error,omitempty"`
	AppliedTotal int64      `json:"applied_total"`
	PendingCount int        `json:"pending_count"`
}

// SyncStatus reports how far this terminal has consumed the cloud event feed.
func SyncStatus(states syncStateGetter, posID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if states == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync state unavailable"))
			return
		}

		state, err := states.Get(r.Context(), posID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, syncStatusResponse{
			POSID:        state.POSID,
			Cursor:       state.Cursor,
			LastRunAt:    state.LastRunAt,
			LastResult:   string(state.LastResult),
			LastError:    state.LastError,
			AppliedTotal: state.AppliedTotal,
			PendingCount: state.PendingCount,
		})
	}
}
