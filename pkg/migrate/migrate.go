package migrate

import (
	"context"
	"fmt"

	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	"github.com/almutairi-dev/tawseel-backend/pkg/db"
	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
)

// Run applies the schema for all persisted models.
func Run(ctx context.Context, client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}

	return client.DB().WithContext(ctx).AutoMigrate(
		&models.Branch{},
		&models.Driver{},
		&models.Order{},
	)
}

// MaybeRunDev applies the schema automatically when the app is running in dev
// mode and the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "running schema auto-migration (dev)")

	if err := Run(ctx, client); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}

	logg.Info(ctx, "schema auto-migration completed")
	return nil
}
