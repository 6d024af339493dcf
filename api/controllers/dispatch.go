package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/api/middleware"
	"github.com/almutairi-dev/tawseel-backend/api/responses"
	"github.com/almutairi-dev/tawseel-backend/api/validators"
	"github.com/almutairi-dev/tawseel-backend/internal/dispatch"
	"github.com/almutairi-dev/tawseel-backend/internal/links"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
)

type dispatchRequest struct {
	OrderIDs []string `json:"order_ids" validate:"required,min=1,max=50,dive,uuid"`
}

// DispatchOrders groups a selection of orders into a single-driver WhatsApp
// handoff batch.
func DispatchOrders(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := middleware.ScopeFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req dispatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderIDs := make([]uuid.UUID, 0, len(req.OrderIDs))
		for _, raw := range req.OrderIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_ids must be uuids"))
				return
			}
			orderIDs = append(orderIDs, id)
		}

		batch, err := svc.BuildBatch(r.Context(), scope, orderIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

// DispatchQR renders the capability link for one order and action as a PNG
// QR code, for printing on the physical paperwork.
func DispatchQR(generator *links.Generator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseQueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if orderID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required"))
			return
		}

		action, err := links.ParseAction(r.URL.Query().Get("action"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown link action"))
			return
		}

		png, err := generator.QRCode(orderID, action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
