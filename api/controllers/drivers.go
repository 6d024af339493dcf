package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/api/responses"
	"github.com/almutairi-dev/tawseel-backend/api/validators"
	"github.com/almutairi-dev/tawseel-backend/internal/drivers"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
)

type createDriverRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Phone string `json:"phone" validate:"required,min=7,max=20"`
}

// CreateDriver registers a new delivery driver.
func CreateDriver(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDriverRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		driver, err := svc.Create(r.Context(), drivers.CreateDriverInput{Name: req.Name, Phone: req.Phone})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, driver)
	}
}

// GetDriver returns one driver by id.
func GetDriver(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := uuid.Parse(chi.URLParam(r, "driverId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "driver id must be a uuid"))
			return
		}

		driver, err := svc.Get(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, driver)
	}
}

// ListDrivers returns every driver.
func ListDrivers(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, all)
	}
}
