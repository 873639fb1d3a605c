package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/enriquemoya/cardstock-backend/api/middleware"
	"github.com/enriquemoya/cardstock-backend/api/responses"
	"github.com/enriquemoya/cardstock-backend/api/validators"
	draftsvc "github.com/enriquemoya/cardstock-backend/internal/drafts"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
)

type draftItemRequest struct {
	InventoryID uuid.UUID `json:"inventory_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,min=1"`
}

type draftUpsertRequest struct {
	BranchID uuid.UUID          `json:"branch_id" validate:"required"`
	Items    []draftItemRequest `json:"items" validate:"required,min=1,dive"`
}

// DraftUpsert replaces the caller's active draft with the submitted lines.
func DraftUpsert(svc draftsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drafts service unavailable"))
			return
		}

		ownerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload draftUpsertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := draftsvc.UpsertDraftInput{BranchID: payload.BranchID}
		for _, item := range payload.Items {
			input.Items = append(input.Items, draftsvc.ItemInput{
				InventoryID: item.InventoryID,
				Quantity:    item.Quantity,
			})
		}

		view, err := svc.UpsertDraft(r.Context(), ownerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// DraftActive returns the caller's active draft with per-line availability.
func DraftActive(svc draftsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drafts service unavailable"))
			return
		}

		ownerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetActiveDraft(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

type revalidateRequest struct {
	Items []draftItemRequest `json:"items" validate:"required,min=1,dive"`
}

// DraftRevalidate computes live availability for the submitted lines without
// persisting anything.
func DraftRevalidate(svc draftsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drafts service unavailable"))
			return
		}

		var payload revalidateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]draftsvc.ItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, draftsvc.ItemInput{
				InventoryID: item.InventoryID,
				Quantity:    item.Quantity,
			})
		}

		result, err := svc.RevalidateItems(r.Context(), items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor identity")
	}
	return id, nil
}
