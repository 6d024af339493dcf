package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
	"github.com/almutairi-dev/tawseel-backend/pkg/pagination"
	"github.com/almutairi-dev/tawseel-backend/pkg/visibility"
)

// Repository defines persistence operations for orders. Every read takes a
// visibility scope so branch restrictions are applied inside the query and
// cannot be bypassed by callers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, scope visibility.Scope, id uuid.UUID) (*models.Order, error)
	FindByIDs(ctx context.Context, scope visibility.Scope, ids []uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, scope visibility.Scope, filter ListFilter, params pagination.Params) (*OrderList, error)
	ListArchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateDriver(ctx context.Context, id uuid.UUID, driverID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}
