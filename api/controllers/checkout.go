package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/enriquemoya/cardstock-backend/api/responses"
	"github.com/enriquemoya/cardstock-backend/api/validators"
	checkoutsvc "github.com/enriquemoya/cardstock-backend/internal/checkout"
	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
)

type checkoutRequest struct {
	DraftID        uuid.UUID  `json:"draft_id" validate:"required"`
	PaymentMethod  *string    `json:"payment_method,omitempty"`
	PickupBranchID *uuid.UUID `json:"pickup_branch_id,omitempty"`
}

// Checkout converts the caller's active draft into an order with reserved stock.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		ownerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.CheckoutInput{
			DraftID:        payload.DraftID,
			PickupBranchID: payload.PickupBranchID,
		}
		if payload.PaymentMethod != nil {
			method, err := enums.ParsePaymentMethod(*payload.PaymentMethod)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
				return
			}
			input.PaymentMethod = &method
		}

		order, err := svc.CreateOrder(r.Context(), ownerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
