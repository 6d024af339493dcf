package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/api/middleware"
	"github.com/almutairi-dev/tawseel-backend/api/responses"
	"github.com/almutairi-dev/tawseel-backend/api/validators"
	"github.com/almutairi-dev/tawseel-backend/internal/orders"
	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
	"github.com/almutairi-dev/tawseel-backend/pkg/pagination"
)

type createOrderRequest struct {
	Kind          string  `json:"kind" validate:"required,oneof=delivery installation"`
	BranchID      string  `json:"branch_id" validate:"required,uuid"`
	DriverID      *string `json:"driver_id" validate:"omitempty,uuid"`
	CustomerName  string  `json:"customer_name" validate:"required,min=2,max=120"`
	CustomerPhone string  `json:"customer_phone" validate:"required,min=7,max=20"`
	City          string  `json:"city" validate:"max=80"`
	District      string  `json:"district" validate:"max=80"`
	Street        string  `json:"street" validate:"max=200"`
	TargetDate    *string `json:"target_date" validate:"omitempty,datetime=2006-01-02"`
	Notes         *string `json:"notes" validate:"omitempty,max=2000"`
}

type assignDriverRequest struct {
	DriverID string `json:"driver_id" validate:"required,uuid"`
}

// CreateOrder registers a new order in the pending state.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := middleware.ScopeFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), scope, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func (req createOrderRequest) toInput() (orders.CreateOrderInput, error) {
	var input orders.CreateOrderInput

	kind, err := enums.ParseOrderKind(req.Kind)
	if err != nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "unknown order kind")
	}
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "branch_id must be a uuid")
	}

	input = orders.CreateOrderInput{
		Kind:          kind,
		BranchID:      branchID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		City:          req.City,
		District:      req.District,
		Street:        req.Street,
		Notes:         req.Notes,
	}

	if req.DriverID != nil {
		driverID, err := uuid.Parse(*req.DriverID)
		if err != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "driver_id must be a uuid")
		}
		input.DriverID = &driverID
	}
	if req.TargetDate != nil {
		date, err := validators.ParseDate(*req.TargetDate)
		if err != nil {
			return input, err
		}
		input.TargetDate = date
	}
	return input, nil
}

// ListOrders returns one cursor page of orders visible to the caller.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := middleware.ScopeFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, params, err := parseOrderListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), scope, filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func parseOrderListQuery(r *http.Request) (orders.ListFilter, pagination.Params, error) {
	var filter orders.ListFilter
	var params pagination.Params

	limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
	if err != nil {
		return filter, params, err
	}
	params.Limit = limit
	params.Cursor = r.URL.Query().Get("cursor")

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filter, params, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
		}
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, err := enums.ParseOrderKind(raw)
		if err != nil {
			return filter, params, pkgerrors.New(pkgerrors.CodeValidation, "unknown order kind")
		}
		filter.Kind = &kind
	}
	if driverID, err := validators.ParseQueryUUID(r, "driver_id"); err != nil {
		return filter, params, err
	} else if driverID != uuid.Nil {
		filter.DriverID = &driverID
	}
	if filter.TargetFrom, err = validators.ParseQueryDate(r, "target_from"); err != nil {
		return filter, params, err
	}
	if filter.TargetTo, err = validators.ParseQueryDate(r, "target_to"); err != nil {
		return filter, params, err
	}
	return filter, params, nil
}

// GetOrder returns one order with its branch and driver preloaded.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := middleware.ScopeFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), scope, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AssignDriver sets or replaces the driver on an active order.
func AssignDriver(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := middleware.ScopeFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignDriverRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		driverID, err := uuid.Parse(req.DriverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "driver_id must be a uuid"))
			return
		}

		order, err := svc.AssignDriver(r.Context(), scope, orderID, driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ArchiveOrder moves a completed order into the archive.
func ArchiveOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := middleware.ScopeFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Archive(r.Context(), scope, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a uuid")
	}
	return orderID, nil
}
