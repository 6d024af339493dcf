package cleanup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
	"github.com/almutairi-dev/tawseel-backend/pkg/visibility"
)

type ordersRepo interface {
	FindByID(ctx context.Context, scope visibility.Scope, id uuid.UUID) (*models.Order, error)
	ListArchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type blobStore interface {
	ResolveKey(fetchURL string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Report aggregates the outcome of one purge run. Partial success is the
// expected shape here, not an error state.
type Report struct {
	OrdersProcessed    int `json:"orders_processed"`
	OrdersDeleted      int `json:"orders_deleted"`
	OrdersSkipped      int `json:"orders_skipped"`
	AttachmentsDeleted int `json:"attachments_deleted"`
	AttachmentFailures int `json:"attachment_failures"`
}

// Coordinator permanently removes archived orders together with their
// stored attachments. Per-order work runs concurrently under a configured
// bound; one order's failures never block the rest of the batch.
type Coordinator struct {
	repo        ordersRepo
	store       blobStore
	concurrency int
	logg        *logger.Logger
}

// NewCoordinator builds a cleanup coordinator with the required dependencies.
func NewCoordinator(repo ordersRepo, store blobStore, concurrency int, logg *logger.Logger) (*Coordinator, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Coordinator{repo: repo, store: store, concurrency: concurrency, logg: logg}, nil
}

// Purge deletes the given archived orders. Orders that are missing or not
// archived are skipped and counted; attachment failures are isolated per
// slot and never prevent the order record itself from being removed.
func (c *Coordinator) Purge(ctx context.Context, orderIDs []uuid.UUID) (*Report, error) {
	report := &Report{}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, orderID := range orderIDs {
		orderID := orderID
		g.Go(func() error {
			outcome := c.purgeOne(ctx, orderID)
			mu.Lock()
			report.OrdersProcessed++
			report.AttachmentsDeleted += outcome.attachmentsDeleted
			report.AttachmentFailures += outcome.attachmentFailures
			if outcome.skipped {
				report.OrdersSkipped++
			}
			if outcome.recordDeleted {
				report.OrdersDeleted++
			}
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures land in the report.
	_ = g.Wait()
	return report, nil
}

// PurgeArchivedBefore purges every order archived before the cutoff.
func (c *Coordinator) PurgeArchivedBefore(ctx context.Context, cutoff time.Time, limit int) (*Report, error) {
	orders, err := c.repo.ListArchivedBefore(ctx, cutoff, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	return c.Purge(ctx, ids)
}

type purgeOutcome struct {
	skipped            bool
	recordDeleted      bool
	attachmentsDeleted int
	attachmentFailures int
}

func (c *Coordinator) purgeOne(ctx context.Context, orderID uuid.UUID) purgeOutcome {
	outcome := purgeOutcome{}

	order, err := c.repo.FindByID(ctx, visibility.Scope{}, orderID)
	if err != nil {
		outcome.skipped = true
		if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) && c.logg != nil {
			c.logg.Error(ctx, "purge lookup failed", err)
		}
		return outcome
	}
	if order.Status != enums.OrderStatusArchived {
		outcome.skipped = true
		return outcome
	}

	for _, slot := range order.PopulatedAttachments() {
		key, err := c.store.ResolveKey(slot.URL)
		if err != nil {
			outcome.attachmentFailures++
			if c.logg != nil {
				c.logg.Warn(ctx, fmt.Sprintf("attachment url for slot %s could not be resolved", slot.Name))
			}
			continue
		}
		if err := c.store.Delete(ctx, key); err != nil {
			outcome.attachmentFailures++
			if c.logg != nil {
				c.logg.Warn(ctx, fmt.Sprintf("attachment %s could not be deleted", key))
			}
			continue
		}
		outcome.attachmentsDeleted++
	}

	// The record goes regardless of how the attachments fared.
	if err := c.repo.Delete(ctx, orderID); err != nil {
		if c.logg != nil {
			c.logg.Error(ctx, "purge record delete failed", err)
		}
		return outcome
	}
	outcome.recordDeleted = true
	return outcome
}
