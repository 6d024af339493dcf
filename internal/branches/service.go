package branches

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
)

// CreateBranchInput carries the fields for a new branch.
type CreateBranchInput struct {
	Name string
	City string
}

// Service exposes branch operations to the API layer.
type Service interface {
	Create(ctx context.Context, input CreateBranchInput) (*models.Branch, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Branch, error)
	List(ctx context.Context) ([]models.Branch, error)
}

type service struct {
	repo Repository
}

// NewService builds a branch service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("branches repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateBranchInput) (*models.Branch, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch name is required")
	}
	return s.repo.Create(ctx, &models.Branch{
		ID:   uuid.New(),
		Name: name,
		City: strings.TrimSpace(input.City),
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]models.Branch, error) {
	return s.repo.List(ctx)
}
