package branches

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
)

// Repository defines persistence operations for branches.
type Repository interface {
	Create(ctx context.Context, branch *models.Branch) (*models.Branch, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Branch, error)
	List(ctx context.Context) ([]models.Branch, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a branches repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, branch *models.Branch) (*models.Branch, error) {
	if err := r.db.WithContext(ctx).Create(branch).Error; err != nil {
		return nil, err
	}
	return branch, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	var branch models.Branch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&branch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")
	}
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *repository) List(ctx context.Context) ([]models.Branch, error) {
	var branches []models.Branch
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}
