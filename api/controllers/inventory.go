package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/enriquemoya/cardstock-backend/api/middleware"
	"github.com/enriquemoya/cardstock-backend/api/responses"
	"github.com/enriquemoya/cardstock-backend/api/validators"
	inventorysvc "github.com/enriquemoya/cardstock-backend/internal/inventory"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
)

// InventoryAvailability lists sellable quantities for a branch. The branch
// comes from the query when present, otherwise from the caller's claims.
func InventoryAvailability(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		branchID, err := resolveBranchID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListAvailability(r.Context(), branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// InventoryItem returns the availability of a single inventory row.
func InventoryItem(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		inventoryID, err := validators.ParsePathUUID(chi.URLParam(r, "inventoryId"), "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetAvailability(r.Context(), inventoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

func resolveBranchID(r *http.Request) (uuid.UUID, error) {
	if raw := strings.TrimSpace(r.URL.Query().Get("branch_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "branch_id must be a uuid").WithDetails(map[string]any{"field": "branch_id"})
		}
		return id, nil
	}
	if raw := middleware.BranchIDFromContext(r.Context()); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid branch claim")
		}
		return id, nil
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "branch_id is required")
}
