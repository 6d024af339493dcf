package drivers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
)

// Repository defines persistence operations for drivers.
type Repository interface {
	Create(ctx context.Context, driver *models.Driver) (*models.Driver, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	List(ctx context.Context) ([]models.Driver, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a drivers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, driver *models.Driver) (*models.Driver, error) {
	if err := r.db.WithContext(ctx).Create(driver).Error; err != nil {
		return nil, err
	}
	return driver, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	var driver models.Driver
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&driver).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
	}
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *repository) List(ctx context.Context) ([]models.Driver, error) {
	var drivers []models.Driver
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&drivers).Error; err != nil {
		return nil, err
	}
	return drivers, nil
}
