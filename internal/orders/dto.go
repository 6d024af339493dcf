package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
)

// CreateOrderInput carries the staff-entered fields for a new order.
type CreateOrderInput struct {
	Kind          enums.OrderKind
	BranchID      uuid.UUID
	DriverID      *uuid.UUID
	CustomerName  string
	CustomerPhone string
	City          string
	District      string
	Street        string
	TargetDate    *time.Time
	Notes         *string
}

// ListFilter restricts an order listing. Zero values mean "no restriction".
type ListFilter struct {
	Status     *enums.OrderStatus
	Kind       *enums.OrderKind
	DriverID   *uuid.UUID
	TargetFrom *time.Time
	TargetTo   *time.Time
}

// OrderList is one page of orders plus the cursor for the next page.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// Upload is one file received from a capability-link form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CompleteInput carries the attachments for the complete transition. The
// populated fields depend on the order kind: delivery sends SignedProof,
// installation sends BeforeImage and AfterImage.
type CompleteInput struct {
	SignedProof *Upload
	BeforeImage *Upload
	AfterImage  *Upload
}
