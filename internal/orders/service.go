package orders

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
	"github.com/almutairi-dev/tawseel-backend/pkg/pagination"
	"github.com/almutairi-dev/tawseel-backend/pkg/visibility"
)

type blobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type orderNumberSource interface {
	NextOrderNumber(ctx context.Context) (int64, error)
}

type branchReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Branch, error)
}

type driverReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Driver, error)
}

// Service drives the order fulfillment state machine.
type Service interface {
	Create(ctx context.Context, scope visibility.Scope, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, scope visibility.Scope, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, scope visibility.Scope, filter ListFilter, params pagination.Params) (*OrderList, error)
	AssignDriver(ctx context.Context, scope visibility.Scope, orderID, driverID uuid.UUID) (*models.Order, error)
	Confirm(ctx context.Context, orderID uuid.UUID, date time.Time) (*models.Order, error)
	Complete(ctx context.Context, orderID uuid.UUID, input CompleteInput) (*models.Order, error)
	Archive(ctx context.Context, scope visibility.Scope, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo     Repository
	store    blobStore
	numbers  orderNumberSource
	branches branchReader
	drivers  driverReader
	media    config.MediaConfig
	loc      *time.Location
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, store blobStore, numbers orderNumberSource, branches branchReader, drivers driverReader, media config.MediaConfig, loc *time.Location, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if numbers == nil {
		return nil, fmt.Errorf("order number source required")
	}
	if branches == nil {
		return nil, fmt.Errorf("branch reader required")
	}
	if drivers == nil {
		return nil, fmt.Errorf("driver reader required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:     repo,
		store:    store,
		numbers:  numbers,
		branches: branches,
		drivers:  drivers,
		media:    media,
		loc:      loc,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, scope visibility.Scope, input CreateOrderInput) (*models.Order, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order kind")
	}
	if input.BranchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch is required")
	}
	if !scope.Allows(input.BranchID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot create orders for another branch")
	}
	if strings.TrimSpace(input.CustomerName) == "" || strings.TrimSpace(input.CustomerPhone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name and phone are required")
	}

	if _, err := s.branches.FindByID(ctx, input.BranchID); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown branch")
		}
		return nil, err
	}
	if input.DriverID != nil {
		if _, err := s.drivers.FindByID(ctx, *input.DriverID); err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown driver")
			}
			return nil, err
		}
	}

	number, err := s.numbers.NextOrderNumber(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
	}

	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		Kind:          input.Kind,
		Status:        enums.OrderStatusPending,
		BranchID:      input.BranchID,
		DriverID:      input.DriverID,
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerPhone: strings.TrimSpace(input.CustomerPhone),
		City:          input.City,
		District:      input.District,
		Street:        input.Street,
		TargetDate:    input.TargetDate,
		Notes:         input.Notes,
	}
	return s.repo.Create(ctx, order)
}

func (s *service) Get(ctx context.Context, scope visibility.Scope, id uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, scope, id)
}

func (s *service) List(ctx context.Context, scope visibility.Scope, filter ListFilter, params pagination.Params) (*OrderList, error) {
	return s.repo.List(ctx, scope, filter, params)
}

func (s *service) AssignDriver(ctx context.Context, scope visibility.Scope, orderID, driverID uuid.UUID) (*models.Order, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver is required")
	}
	if _, err := s.drivers.FindByID(ctx, driverID); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown driver")
		}
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, scope, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusArchived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "archived orders cannot be reassigned")
	}
	if err := s.repo.UpdateDriver(ctx, orderID, driverID); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, scope, orderID)
}

// Confirm applies the customer's chosen installation date. Delivery orders
// have no confirmation step; their drivers go straight to complete.
func (s *service) Confirm(ctx context.Context, orderID uuid.UUID, date time.Time) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, visibility.Scope{}, orderID)
	if err != nil {
		return nil, err
	}
	if order.Kind != enums.OrderKindInstallation {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only installation orders are confirmed with a date")
	}

	chosen := dateOnly(date.In(s.loc))
	today := dateOnly(s.now().In(s.loc))
	if !chosen.After(today) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidDate, "installation date must be after today").
			WithDetails(map[string]any{"date": chosen.Format("2006-01-02")})
	}

	now := s.now().UTC()
	err = s.repo.UpdateStatus(ctx, orderID,
		[]enums.OrderStatus{enums.OrderStatusPending},
		enums.OrderStatusConfirmed,
		map[string]any{
			"target_date":  chosen,
			"confirmed_at": now,
		})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, visibility.Scope{}, orderID)
}

// Complete uploads the required attachments and moves the order to
// completed. The uploads happen first; if the conditional status write then
// loses to a concurrent writer, the fresh blobs are deleted so the race
// leaves no orphan behind.
func (s *service) Complete(ctx context.Context, orderID uuid.UUID, input CompleteInput) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, visibility.Scope{}, orderID)
	if err != nil {
		return nil, err
	}

	var (
		from    []enums.OrderStatus
		uploads []slotUpload
	)
	switch order.Kind {
	case enums.OrderKindDelivery:
		from = []enums.OrderStatus{enums.OrderStatusPending}
		uploads, err = s.deliveryUploads(input)
	case enums.OrderKindInstallation:
		from = []enums.OrderStatus{enums.OrderStatusConfirmed}
		uploads, err = s.installationUploads(input)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order has unknown kind")
	}
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case enums.OrderStatusCompleted, enums.OrderStatusArchived:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already completed")
	}

	updates := map[string]any{"completed_at": s.now().UTC()}
	uploadedKeys := []string{}
	for _, upload := range uploads {
		key := attachmentKey(orderID, upload.slot, upload.file.Filename)
		fetchURL, err := s.store.Put(ctx, key, upload.file.Data, upload.file.ContentType)
		if err != nil {
			s.discardBlobs(ctx, uploadedKeys)
			return nil, err
		}
		uploadedKeys = append(uploadedKeys, key)
		updates[upload.slot+"_url"] = fetchURL
		updates[upload.slot+"_name"] = upload.file.Filename
	}

	err = s.repo.UpdateStatus(ctx, orderID, from, enums.OrderStatusCompleted, updates)
	if err != nil {
		s.discardBlobs(ctx, uploadedKeys)
		return nil, err
	}
	return s.repo.FindByID(ctx, visibility.Scope{}, orderID)
}

func (s *service) Archive(ctx context.Context, scope visibility.Scope, orderID uuid.UUID) (*models.Order, error) {
	if _, err := s.repo.FindByID(ctx, scope, orderID); err != nil {
		return nil, err
	}
	err := s.repo.UpdateStatus(ctx, orderID,
		[]enums.OrderStatus{enums.OrderStatusCompleted},
		enums.OrderStatusArchived,
		map[string]any{"archived_at": s.now().UTC()})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, scope, orderID)
}

type slotUpload struct {
	slot string
	file Upload
}

var signedProofExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

func (s *service) deliveryUploads(input CompleteInput) ([]slotUpload, error) {
	if input.SignedProof == nil {
		return nil, pkgerrors.New(pkgerrors.CodeMissingAttachment, "signed proof is required").
			WithDetails(map[string]any{"slot": "signed_file"})
	}
	proof := *input.SignedProof
	if !signedProofExtensions[fileExtension(proof.Filename)] {
		return nil, pkgerrors.New(pkgerrors.CodeUnsupportedFileType, "signed proof must be pdf, jpg, jpeg or png")
	}
	if int64(len(proof.Data)) > s.media.SignedProofMaxBytes() {
		return nil, pkgerrors.New(pkgerrors.CodeFileTooLarge, "signed proof exceeds the size limit").
			WithDetails(map[string]any{"max_bytes": s.media.SignedProofMaxBytes()})
	}
	return []slotUpload{{slot: "signed_file", file: proof}}, nil
}

func (s *service) installationUploads(input CompleteInput) ([]slotUpload, error) {
	pairs := []struct {
		slot string
		file *Upload
	}{
		{slot: "before_image", file: input.BeforeImage},
		{slot: "after_image", file: input.AfterImage},
	}
	uploads := make([]slotUpload, 0, len(pairs))
	for _, pair := range pairs {
		if pair.file == nil {
			return nil, pkgerrors.New(pkgerrors.CodeMissingAttachment, "before and after photos are required").
				WithDetails(map[string]any{"slot": pair.slot})
		}
		photo := *pair.file
		if !photoExtensions[fileExtension(photo.Filename)] {
			return nil, pkgerrors.New(pkgerrors.CodeUnsupportedFileType, "photos must be jpg, jpeg or png")
		}
		if int64(len(photo.Data)) > s.media.PhotoMaxBytes() {
			return nil, pkgerrors.New(pkgerrors.CodeFileTooLarge, "photo exceeds the size limit").
				WithDetails(map[string]any{"slot": pair.slot, "max_bytes": s.media.PhotoMaxBytes()})
		}
		compressed, err := Downscale(photo.Data, s.media.ImageMaxDimension, s.media.ImageTargetBytes(), s.media.ImageQuality)
		if err != nil {
			return nil, err
		}
		photo.Data = compressed
		photo.ContentType = "image/jpeg"
		photo.Filename = jpegFilename(photo.Filename)
		uploads = append(uploads, slotUpload{slot: pair.slot, file: photo})
	}
	return uploads, nil
}

func (s *service) discardBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("orphaned attachment %s could not be removed", key))
		}
	}
}

func attachmentKey(orderID uuid.UUID, slot, filename string) string {
	return fmt.Sprintf("orders/%s/%s%s", orderID, slot, fileExtension(filename))
}

func fileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func jpegFilename(filename string) string {
	ext := filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext) + ".jpg"
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
