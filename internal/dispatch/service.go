package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/internal/links"
	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/visibility"
)

type ordersReader interface {
	FindByIDs(ctx context.Context, scope visibility.Scope, ids []uuid.UUID) ([]models.Order, error)
}

type linkBuilder interface {
	Build(orderID uuid.UUID, action links.Action) (string, error)
}

// Batch is the outcome of a successful dispatch: one driver, one rendered
// message thread, plus the order IDs that were excluded for having no driver.
type Batch struct {
	DriverID           uuid.UUID   `json:"driver_id"`
	DriverName         string      `json:"driver_name"`
	Phone              string      `json:"phone"`
	Message            string      `json:"message"`
	WhatsAppURL        string      `json:"whatsapp_url"`
	OrderIDs           []uuid.UUID `json:"order_ids"`
	UnassignedOrderIDs []uuid.UUID `json:"unassigned_order_ids"`
}

// Service groups a staff selection of orders into a single-driver batch.
type Service interface {
	BuildBatch(ctx context.Context, scope visibility.Scope, orderIDs []uuid.UUID) (*Batch, error)
}

type service struct {
	orders ordersReader
	links  linkBuilder
	cfg    config.DispatchConfig
}

// NewService builds a dispatch service with the required dependencies.
func NewService(orders ordersReader, builder linkBuilder, cfg config.DispatchConfig) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if builder == nil {
		return nil, fmt.Errorf("link builder required")
	}
	if cfg.CountryPrefix == "" {
		return nil, fmt.Errorf("dispatch country prefix required")
	}
	if cfg.WhatsAppBaseURL == "" {
		return nil, fmt.Errorf("dispatch whatsapp base url required")
	}
	return &service{orders: orders, links: builder, cfg: cfg}, nil
}

func (s *service) BuildBatch(ctx context.Context, scope visibility.Scope, orderIDs []uuid.UUID) (*Batch, error) {
	if len(orderIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order selection is empty")
	}

	orders, err := s.orders.FindByIDs(ctx, scope, orderIDs)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(orderIDs, orders); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "selection contains unknown orders").
			WithDetails(map[string]any{"order_ids": missing})
	}

	assigned := make([]models.Order, 0, len(orders))
	unassigned := []uuid.UUID{}
	driverIDs := map[uuid.UUID]struct{}{}
	for _, order := range orders {
		if order.DriverID == nil {
			unassigned = append(unassigned, order.ID)
			continue
		}
		assigned = append(assigned, order)
		driverIDs[*order.DriverID] = struct{}{}
	}

	if len(driverIDs) > 1 {
		ids := make([]string, 0, len(driverIDs))
		for id := range driverIDs {
			ids = append(ids, id.String())
		}
		sort.Strings(ids)
		return nil, pkgerrors.New(pkgerrors.CodeMultipleDrivers, "selection spans multiple drivers").
			WithDetails(map[string]any{"driver_ids": ids})
	}
	if len(assigned) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selection contains no assigned orders").
			WithDetails(map[string]any{"unassigned_order_ids": unassigned})
	}

	driver := assigned[0].Driver
	if driver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "assigned order missing driver record")
	}

	linksByOrder := make(map[string]OrderLinks, len(assigned))
	batchIDs := make([]uuid.UUID, 0, len(assigned))
	for _, order := range assigned {
		view, err := s.links.Build(order.ID, links.ActionView)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build view link")
		}
		complete, err := s.links.Build(order.ID, links.ActionComplete)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build complete link")
		}
		linksByOrder[order.ID.String()] = OrderLinks{View: view, Complete: complete}
		batchIDs = append(batchIDs, order.ID)
	}

	phone := NormalizePhone(driver.Phone, s.cfg.CountryPrefix)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver has no usable phone number").
			WithDetails(map[string]any{"driver_id": driver.ID})
	}
	message := RenderMessage(driver.Name, assigned, linksByOrder)

	return &Batch{
		DriverID:           driver.ID,
		DriverName:         driver.Name,
		Phone:              phone,
		Message:            message,
		WhatsAppURL:        s.whatsAppURL(phone, message),
		OrderIDs:           batchIDs,
		UnassignedOrderIDs: unassigned,
	}, nil
}

func (s *service) whatsAppURL(phone, message string) string {
	base := strings.TrimRight(s.cfg.WhatsAppBaseURL, "/")
	return fmt.Sprintf("%s/%s?text=%s", base, phone, url.QueryEscape(message))
}

func missingIDs(requested []uuid.UUID, found []models.Order) []uuid.UUID {
	present := make(map[uuid.UUID]struct{}, len(found))
	for _, order := range found {
		present[order.ID] = struct{}{}
	}
	missing := []uuid.UUID{}
	seen := map[uuid.UUID]struct{}{}
	for _, id := range requested {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
