package orders

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/pagination"
	"github.com/almutairi-dev/tawseel-backend/pkg/visibility"
)

type memoryRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newMemoryRepo(orders ...*models.Order) *memoryRepo {
	repo := &memoryRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, order := range orders {
		clone := *order
		repo.orders[order.ID] = &clone
	}
	return repo
}

func (m *memoryRepo) WithTx(_ *gorm.DB) Repository { return m }

func (m *memoryRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	clone := *order
	m.orders[order.ID] = &clone
	return order, nil
}

func (m *memoryRepo) FindByID(_ context.Context, scope visibility.Scope, id uuid.UUID) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok || !scope.Allows(order.BranchID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	clone := *order
	return &clone, nil
}

func (m *memoryRepo) FindByIDs(_ context.Context, scope visibility.Scope, ids []uuid.UUID) ([]models.Order, error) {
	found := []models.Order{}
	for _, id := range ids {
		if order, ok := m.orders[id]; ok && scope.Allows(order.BranchID) {
			found = append(found, *order)
		}
	}
	return found, nil
}

func (m *memoryRepo) List(_ context.Context, scope visibility.Scope, _ ListFilter, _ pagination.Params) (*OrderList, error) {
	list := &OrderList{}
	for _, order := range m.orders {
		if scope.Allows(order.BranchID) {
			list.Orders = append(list.Orders, *order)
		}
	}
	return list, nil
}

func (m *memoryRepo) ListArchivedBefore(_ context.Context, cutoff time.Time, _ int) ([]models.Order, error) {
	orders := []models.Order{}
	for _, order := range m.orders {
		if order.Status == enums.OrderStatusArchived && order.ArchivedAt != nil && order.ArchivedAt.Before(cutoff) {
			orders = append(orders, *order)
		}
	}
	return orders, nil
}

func (m *memoryRepo) UpdateDriver(_ context.Context, id uuid.UUID, driverID uuid.UUID) error {
	order, ok := m.orders[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order.DriverID = &driverID
	return nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) error {
	order, ok := m.orders[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	matched := false
	for _, status := range from {
		if order.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status does not allow this transition")
	}
	order.Status = to
	for column, value := range updates {
		switch column {
		case "target_date":
			v := value.(time.Time)
			order.TargetDate = &v
		case "confirmed_at":
			v := value.(time.Time)
			order.ConfirmedAt = &v
		case "completed_at":
			v := value.(time.Time)
			order.CompletedAt = &v
		case "archived_at":
			v := value.(time.Time)
			order.ArchivedAt = &v
		case "signed_file_url":
			v := value.(string)
			order.SignedFileURL = &v
		case "signed_file_name":
			v := value.(string)
			order.SignedFileName = &v
		case "before_image_url":
			v := value.(string)
			order.BeforeImageURL = &v
		case "before_image_name":
			v := value.(string)
			order.BeforeImageName = &v
		case "after_image_url":
			v := value.(string)
			order.AfterImageURL = &v
		case "after_image_name":
			v := value.(string)
			order.AfterImageName = &v
		}
	}
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.orders[id]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	delete(m.orders, id)
	return nil
}

type stubStore struct {
	putKeys     []string
	deletedKeys []string
	failPut     bool
}

func (s *stubStore) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if s.failPut {
		return "", pkgerrors.New(pkgerrors.CodeUploadFailed, "store down")
	}
	s.putKeys = append(s.putKeys, key)
	return "https://store/bucket/o/" + key + "?alt=media&token=t", nil
}

func (s *stubStore) Delete(_ context.Context, key string) error {
	s.deletedKeys = append(s.deletedKeys, key)
	return nil
}

type stubNumbers struct{ next int64 }

func (s *stubNumbers) NextOrderNumber(_ context.Context) (int64, error) {
	s.next++
	return s.next, nil
}

type stubBranches struct{ branches map[uuid.UUID]*models.Branch }

func (s *stubBranches) FindByID(_ context.Context, id uuid.UUID) (*models.Branch, error) {
	if branch, ok := s.branches[id]; ok {
		return branch, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")
}

type stubDrivers struct{ drivers map[uuid.UUID]*models.Driver }

func (s *stubDrivers) FindByID(_ context.Context, id uuid.UUID) (*models.Driver, error) {
	if driver, ok := s.drivers[id]; ok {
		return driver, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
}

type fixture struct {
	svc      Service
	repo     *memoryRepo
	store    *stubStore
	branch   *models.Branch
	driver   *models.Driver
	now      time.Time
}

func newFixture(t *testing.T, orders ...*models.Order) *fixture {
	t.Helper()
	branch := &models.Branch{ID: uuid.New(), Name: "Riyadh North"}
	driver := &models.Driver{ID: uuid.New(), Name: "Fahad", Phone: "0501234567"}
	repo := newMemoryRepo(orders...)
	store := &stubStore{}
	now := time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)

	svc, err := NewService(repo, store, &stubNumbers{},
		&stubBranches{branches: map[uuid.UUID]*models.Branch{branch.ID: branch}},
		&stubDrivers{drivers: map[uuid.UUID]*models.Driver{driver.ID: driver}},
		config.MediaConfig{SignedProofMaxMB: 5, PhotoMaxMB: 10, ImageMaxDimension: 1920, ImageTargetKB: 1024, ImageQuality: 85},
		time.UTC, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	f := &fixture{svc: svc, repo: repo, store: store, branch: branch, driver: driver, now: now}
	svc.(*service).now = func() time.Time { return now }
	return f
}

func pendingOrder(kind enums.OrderKind, branchID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   7,
		Kind:          kind,
		Status:        enums.OrderStatusPending,
		BranchID:      branchID,
		CustomerName:  "Huda",
		CustomerPhone: "0551112222",
	}
}

func pdfUpload() *Upload {
	return &Upload{Filename: "proof.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}
}

func jpegUpload(t *testing.T, name string, side int) *Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode fixture jpeg: %v", err)
	}
	return &Upload{Filename: name, ContentType: "image/jpeg", Data: buf.Bytes()}
}

func TestCreateAssignsNumberAndPendingStatus(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.Create(context.Background(), visibility.Scope{}, CreateOrderInput{
		Kind:          enums.OrderKindDelivery,
		BranchID:      f.branch.ID,
		CustomerName:  "Huda",
		CustomerPhone: "0551112222",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s", order.Status)
	}
	if order.OrderNumber != 1 {
		t.Fatalf("order number = %d", order.OrderNumber)
	}
}

func TestCreateRejectsForeignBranchForManagers(t *testing.T) {
	f := newFixture(t)
	other := uuid.New()
	scope := visibility.Scope{BranchID: &other}
	_, err := f.svc.Create(context.Background(), scope, CreateOrderInput{
		Kind:          enums.OrderKindDelivery,
		BranchID:      f.branch.ID,
		CustomerName:  "Huda",
		CustomerPhone: "0551112222",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestConfirmDateGuard(t *testing.T) {
	today := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		date time.Time
		ok   bool
	}{
		{"same day rejected", today, false},
		{"yesterday rejected", today.AddDate(0, 0, -1), false},
		{"tomorrow accepted", today.AddDate(0, 0, 1), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := pendingOrder(enums.OrderKindInstallation, uuid.New())
			f := newFixture(t, order)
			updated, err := f.svc.Confirm(context.Background(), order.ID, tc.date)
			if tc.ok {
				if err != nil {
					t.Fatalf("Confirm: %v", err)
				}
				if updated.Status != enums.OrderStatusConfirmed || updated.ConfirmedAt == nil {
					t.Fatalf("confirm did not apply: %+v", updated)
				}
				if updated.TargetDate == nil || !updated.TargetDate.Equal(tc.date) {
					t.Fatalf("target date not set: %v", updated.TargetDate)
				}
				return
			}
			if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidDate) {
				t.Fatalf("expected INVALID_DATE, got %v", err)
			}
			current, _ := f.repo.FindByID(context.Background(), visibility.Scope{}, order.ID)
			if current.Status != enums.OrderStatusPending {
				t.Fatalf("rejected confirm mutated the order: %s", current.Status)
			}
		})
	}
}

func TestConfirmRejectsDeliveryOrders(t *testing.T) {
	order := pendingOrder(enums.OrderKindDelivery, uuid.New())
	f := newFixture(t, order)
	_, err := f.svc.Confirm(context.Background(), order.ID, f.now.AddDate(0, 0, 2))
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestCompleteDeliveryRequiresSignedProof(t *testing.T) {
	order := pendingOrder(enums.OrderKindDelivery, uuid.New())
	f := newFixture(t, order)

	_, err := f.svc.Complete(context.Background(), order.ID, CompleteInput{})
	if !pkgerrors.HasCode(err, pkgerrors.CodeMissingAttachment) {
		t.Fatalf("expected MISSING_ATTACHMENT, got %v", err)
	}
	current, _ := f.repo.FindByID(context.Background(), visibility.Scope{}, order.ID)
	if current.Status != enums.OrderStatusPending {
		t.Fatalf("rejected complete mutated the order: %s", current.Status)
	}
	if len(f.store.putKeys) != 0 {
		t.Fatal("no upload may happen on a rejected complete")
	}
}

func TestCompleteDeliveryPopulatesSlotAtomically(t *testing.T) {
	order := pendingOrder(enums.OrderKindDelivery, uuid.New())
	f := newFixture(t, order)

	updated, err := f.svc.Complete(context.Background(), order.ID, CompleteInput{SignedProof: pdfUpload()})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if updated.Status != enums.OrderStatusCompleted || updated.CompletedAt == nil {
		t.Fatalf("complete did not apply: %+v", updated)
	}
	if updated.SignedFileURL == nil || !strings.Contains(*updated.SignedFileURL, "/o/") {
		t.Fatalf("signed file slot not populated: %v", updated.SignedFileURL)
	}
	if updated.SignedFileName == nil || *updated.SignedFileName != "proof.pdf" {
		t.Fatalf("signed file name not kept: %v", updated.SignedFileName)
	}
}

func TestCompleteRejectsResubmission(t *testing.T) {
	order := pendingOrder(enums.OrderKindDelivery, uuid.New())
	order.Status = enums.OrderStatusCompleted
	f := newFixture(t, order)

	_, err := f.svc.Complete(context.Background(), order.ID, CompleteInput{SignedProof: pdfUpload()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	if len(f.store.putKeys) != 0 {
		t.Fatal("resubmission must not upload")
	}
}

func TestCompleteRejectsUnsupportedProofType(t *testing.T) {
	order := pendingOrder(enums.OrderKindDelivery, uuid.New())
	f := newFixture(t, order)

	_, err := f.svc.Complete(context.Background(), order.ID, CompleteInput{
		SignedProof: &Upload{Filename: "proof.exe", Data: []byte("x")},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnsupportedFileType) {
		t.Fatalf("expected UNSUPPORTED_FILE_TYPE, got %v", err)
	}
}

func TestCompleteRejectsOversizedProof(t *testing.T) {
	order := pendingOrder(enums.OrderKindDelivery, uuid.New())
	f := newFixture(t, order)

	_, err := f.svc.Complete(context.Background(), order.ID, CompleteInput{
		SignedProof: &Upload{Filename: "proof.pdf", Data: make([]byte, 6*1024*1024)},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeFileTooLarge) {
		t.Fatalf("expected FILE_TOO_LARGE, got %v", err)
	}
}

func TestCompleteInstallationRequiresBothPhotos(t *testing.T) {
	order := pendingOrder(enums.OrderKindInstallation, uuid.New())
	order.Status = enums.OrderStatusConfirmed
	f := newFixture(t, order)

	_, err := f.svc.Complete(context.Background(), order.ID, CompleteInput{
		BeforeImage: jpegUpload(t, "before.jpg", 100),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeMissingAttachment) {
		t.Fatalf("expected MISSING_ATTACHMENT, got %v", err)
	}
}

func TestCompleteInstallationUploadsBothPhotos(t *testing.T) {
	order := pendingOrder(enums.OrderKindInstallation, uuid.New())
	order.Status = enums.OrderStatusConfirmed
	f := newFixture(t, order)

	updated, err := f.svc.Complete(context.Background(), order.ID, CompleteInput{
		BeforeImage: jpegUpload(t, "before.jpg", 100),
		AfterImage:  jpegUpload(t, "after.png", 100),
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if updated.BeforeImageURL == nil || updated.AfterImageURL == nil {
		t.Fatalf("photo slots not populated: %+v", updated)
	}
	if updated.AfterImageName == nil || *updated.AfterImageName != "after.jpg" {
		t.Fatalf("photos must be re-encoded as jpeg, got %v", updated.AfterImageName)
	}
	if len(f.store.putKeys) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(f.store.putKeys))
	}
}

func TestCompleteInstallationRequiresConfirmedStatus(t *testing.T) {
	order := pendingOrder(enums.OrderKindInstallation, uuid.New())
	f := newFixture(t, order)

	_, err := f.svc.Complete(context.Background(), order.ID, CompleteInput{
		BeforeImage: jpegUpload(t, "before.jpg", 100),
		AfterImage:  jpegUpload(t, "after.jpg", 100),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	if len(f.store.deletedKeys) != len(f.store.putKeys) {
		t.Fatalf("uploads surviving a lost transition: put %v deleted %v", f.store.putKeys, f.store.deletedKeys)
	}
}

func TestCompleteDeletesBlobsWhenTransitionLoses(t *testing.T) {
	order := pendingOrder(enums.OrderKindDelivery, uuid.New())
	f := newFixture(t, order)

	// Another writer completes the order between the upload and the write.
	f.repo.orders[order.ID].Status = enums.OrderStatusCompleted
	_, err := f.svc.Complete(context.Background(), order.ID, CompleteInput{SignedProof: pdfUpload()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	if len(f.store.putKeys) != 1 || len(f.store.deletedKeys) != 1 {
		t.Fatalf("orphan cleanup missing: put %v deleted %v", f.store.putKeys, f.store.deletedKeys)
	}
	if f.store.putKeys[0] != f.store.deletedKeys[0] {
		t.Fatalf("wrong key deleted: %s vs %s", f.store.putKeys[0], f.store.deletedKeys[0])
	}
}

func TestCompleteAbortsOnUploadFailure(t *testing.T) {
	order := pendingOrder(enums.OrderKindDelivery, uuid.New())
	f := newFixture(t, order)
	f.store.failPut = true

	_, err := f.svc.Complete(context.Background(), order.ID, CompleteInput{SignedProof: pdfUpload()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUploadFailed) {
		t.Fatalf("expected UPLOAD_FAILED, got %v", err)
	}
	current, _ := f.repo.FindByID(context.Background(), visibility.Scope{}, order.ID)
	if current.Status != enums.OrderStatusPending {
		t.Fatalf("failed upload mutated the order: %s", current.Status)
	}
}

func TestArchiveFromCompleted(t *testing.T) {
	order := pendingOrder(enums.OrderKindDelivery, uuid.New())
	order.Status = enums.OrderStatusCompleted
	url := "https://store/bucket/o/orders%2Fx%2Fsigned_file.pdf?alt=media&token=t"
	order.SignedFileURL = &url
	f := newFixture(t, order)

	updated, err := f.svc.Archive(context.Background(), visibility.Scope{}, order.ID)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if updated.Status != enums.OrderStatusArchived || updated.ArchivedAt == nil {
		t.Fatalf("archive did not apply: %+v", updated)
	}
	if updated.SignedFileURL == nil || *updated.SignedFileURL != url {
		t.Fatal("archive must not touch attachment slots")
	}
}

func TestArchiveRejectsNonCompletedStatuses(t *testing.T) {
	for _, status := range []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.OrderStatusArchived} {
		t.Run(string(status), func(t *testing.T) {
			order := pendingOrder(enums.OrderKindDelivery, uuid.New())
			order.Status = status
			f := newFixture(t, order)

			_, err := f.svc.Archive(context.Background(), visibility.Scope{}, order.ID)
			if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
				t.Fatalf("expected STATE_CONFLICT, got %v", err)
			}
			current, _ := f.repo.FindByID(context.Background(), visibility.Scope{}, order.ID)
			if current.Status != status {
				t.Fatalf("rejected archive mutated the order: %s", current.Status)
			}
		})
	}
}

func TestAssignDriverKeepsStatus(t *testing.T) {
	order := pendingOrder(enums.OrderKindDelivery, uuid.New())
	f := newFixture(t, order)

	updated, err := f.svc.AssignDriver(context.Background(), visibility.Scope{}, order.ID, f.driver.ID)
	if err != nil {
		t.Fatalf("AssignDriver: %v", err)
	}
	if updated.DriverID == nil || *updated.DriverID != f.driver.ID {
		t.Fatalf("driver not assigned: %v", updated.DriverID)
	}
	if updated.Status != enums.OrderStatusPending {
		t.Fatalf("assignment changed status: %s", updated.Status)
	}
}

func TestAssignDriverRejectsUnknownDriver(t *testing.T) {
	order := pendingOrder(enums.OrderKindDelivery, uuid.New())
	f := newFixture(t, order)

	_, err := f.svc.AssignDriver(context.Background(), visibility.Scope{}, order.ID, uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestBranchScopeHidesForeignOrders(t *testing.T) {
	mine := uuid.New()
	foreign := pendingOrder(enums.OrderKindDelivery, uuid.New())
	f := newFixture(t, foreign)
	scope := visibility.Scope{BranchID: &mine}

	if _, err := f.svc.Get(context.Background(), scope, foreign.ID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for foreign branch, got %v", err)
	}
	list, err := f.svc.List(context.Background(), scope, ListFilter{}, pagination.Params{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, order := range list.Orders {
		if order.BranchID != mine {
			t.Fatalf("foreign order leaked: %s", order.ID)
		}
	}
}

func TestDownscaleCapsDimensions(t *testing.T) {
	big := jpegUpload(t, "big.jpg", 3000)
	out, err := Downscale(big.Data, 1920, 1024*1024, 85)
	if err != nil {
		t.Fatalf("Downscale: %v", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() > 1920 || bounds.Dy() > 1920 {
		t.Fatalf("output exceeds max dimension: %v", bounds)
	}
}

func TestDownscaleRejectsNonImages(t *testing.T) {
	_, err := Downscale([]byte("not an image"), 1920, 1024*1024, 85)
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnsupportedFileType) {
		t.Fatalf("expected UNSUPPORTED_FILE_TYPE, got %v", err)
	}
}

func TestAttachmentKeyUsesSlotAndExtension(t *testing.T) {
	id := uuid.New()
	key := attachmentKey(id, "signed_file", "Receipt.PDF")
	want := fmt.Sprintf("orders/%s/signed_file.pdf", id)
	if key != want {
		t.Fatalf("key = %q, want %q", key, want)
	}
}
