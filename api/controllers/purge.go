package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/api/responses"
	"github.com/almutairi-dev/tawseel-backend/api/validators"
	"github.com/almutairi-dev/tawseel-backend/internal/cleanup"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
)

type purgeRequest struct {
	OrderIDs []string `json:"order_ids" validate:"required,min=1,max=100,dive,uuid"`
	Confirm  bool     `json:"confirm"`
}

// PurgeOrders permanently deletes archived orders and their attachments.
// The confirm flag must be set; purge is not reversible.
func PurgeOrders(coordinator *cleanup.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req purgeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !req.Confirm {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "purge requires confirm to be true"))
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

		report, err := coordinator.Purge(r.Context(), orderIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
