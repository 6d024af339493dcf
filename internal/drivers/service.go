package drivers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/internal/dispatch"
	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
)

// CreateDriverInput carries the fields for a new driver.
type CreateDriverInput struct {
	Name  string
	Phone string
}

// Service exposes driver operations to the API layer.
type Service interface {
	Create(ctx context.Context, input CreateDriverInput) (*models.Driver, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	List(ctx context.Context) ([]models.Driver, error)
}

type service struct {
	repo Repository
	cfg  config.DispatchConfig
}

// NewService builds a driver service.
func NewService(repo Repository, cfg config.DispatchConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("drivers repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) Create(ctx context.Context, input CreateDriverInput) (*models.Driver, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver name is required")
	}
	// The phone is stored as entered; it must at least normalize to
	// something dialable so dispatch cannot fail later.
	if dispatch.NormalizePhone(input.Phone, s.cfg.CountryPrefix) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver phone is required")
	}
	return s.repo.Create(ctx, &models.Driver{
		ID:    uuid.New(),
		Name:  name,
		Phone: strings.TrimSpace(input.Phone),
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]models.Driver, error) {
	return s.repo.List(ctx)
}
