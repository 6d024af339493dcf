package controllers

import (
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/api/responses"
	"github.com/almutairi-dev/tawseel-backend/api/validators"
	"github.com/almutairi-dev/tawseel-backend/internal/links"
	"github.com/almutairi-dev/tawseel-backend/internal/orders"
	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
	"github.com/almutairi-dev/tawseel-backend/pkg/visibility"
)

// multipartMemoryLimit caps how much of a form upload stays in memory
// before spilling to disk.
const multipartMemoryLimit = 8 << 20

type confirmRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// orderView is the customer-facing projection of an order. Internal fields
// such as notes and branch assignment stay off the wire.
type orderView struct {
	OrderNumber   int64      `json:"order_number"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	City          string     `json:"city"`
	District      string     `json:"district"`
	Street        string     `json:"street"`
	TargetDate    *time.Time `json:"target_date"`
	DriverName    *string    `json:"driver_name,omitempty"`
}

func newOrderView(order *models.Order) orderView {
	view := orderView{
		OrderNumber:   order.OrderNumber,
		Kind:          string(order.Kind),
		Status:        string(order.Status),
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		City:          order.City,
		District:      order.District,
		Street:        order.Street,
		TargetDate:    order.TargetDate,
	}
	if order.Driver != nil {
		view.DriverName = &order.Driver.Name
	}
	return view
}

// verifyLink authenticates a capability link from the request query.
func verifyLink(r *http.Request, generator *links.Generator, action links.Action) (uuid.UUID, error) {
	orderID, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid link")
	}
	if err := generator.Verify(orderID, action, r.URL.Query().Get("exp"), r.URL.Query().Get("sig")); err != nil {
		return uuid.Nil, err
	}
	return orderID, nil
}

// PublicViewOrder serves the order summary behind a view capability link.
func PublicViewOrder(svc orders.Service, generator *links.Generator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := verifyLink(r, generator, links.ActionView)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), visibility.Scope{}, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// PublicConfirmOrder handles the customer's installation date confirmation.
func PublicConfirmOrder(svc orders.Service, generator *links.Generator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := verifyLink(r, generator, links.ActionConfirm)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req confirmRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := validators.ParseDate(req.Date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Confirm(r.Context(), orderID, *date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// PublicCompleteOrder receives completion attachments from the driver's
// capability link. Delivery orders send signed_file; installation orders
// send before_image and after_image.
func PublicCompleteOrder(svc orders.Service, generator *links.Generator, media config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	// the request body cap leaves headroom over the per-file limits so the
	// service can report FILE_TOO_LARGE instead of a blunt connection reset
	bodyLimit := 2*media.PhotoMaxBytes() + media.SignedProofMaxBytes() + multipartMemoryLimit

	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := verifyLink(r, generator, links.ActionComplete)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
		if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request must be multipart form data"))
			return
		}
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()

		order, err := svc.Get(r.Context(), visibility.Scope{}, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := completeInputFromForm(r, order.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		completed, err := svc.Complete(r.Context(), orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(completed))
	}
}

func completeInputFromForm(r *http.Request, kind enums.OrderKind) (orders.CompleteInput, error) {
	var input orders.CompleteInput

	if kind == enums.OrderKindDelivery {
		upload, err := formUpload(r, "signed_file")
		if err != nil {
			return input, err
		}
		input.SignedProof = upload
		return input, nil
	}

	before, err := formUpload(r, "before_image")
	if err != nil {
		return input, err
	}
	after, err := formUpload(r, "after_image")
	if err != nil {
		return input, err
	}
	input.BeforeImage = before
	input.AfterImage = after
	return input, nil
}

// formUpload reads one named file from the parsed form. A missing part is
// not an error here; the service decides which slots are mandatory.
func formUpload(r *http.Request, field string) (*orders.Upload, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable file upload").
			WithDetails(map[string]any{"field": field})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable file upload").
			WithDetails(map[string]any{"field": field})
	}

	return &orders.Upload{
		Filename:    header.Filename,
		ContentType: contentTypeOf(header),
		Data:        data,
	}, nil
}

func contentTypeOf(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
