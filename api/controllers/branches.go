package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/api/responses"
	"github.com/almutairi-dev/tawseel-backend/api/validators"
	"github.com/almutairi-dev/tawseel-backend/internal/branches"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
)

type createBranchRequest struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
	City string `json:"city" validate:"max=80"`
}

// CreateBranch registers a new branch.
func CreateBranch(svc branches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBranchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		branch, err := svc.Create(r.Context(), branches.CreateBranchInput{Name: req.Name, City: req.City})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, branch)
	}
}

// GetBranch returns one branch by id.
func GetBranch(svc branches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID, err := uuid.Parse(chi.URLParam(r, "branchId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "branch id must be a uuid"))
			return
		}

		branch, err := svc.Get(r.Context(), branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, branch)
	}
}

// ListBranches returns every branch.
func ListBranches(svc branches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, all)
	}
}
