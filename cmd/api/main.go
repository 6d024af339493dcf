package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/almutairi-dev/tawseel-backend/api/controllers"
	"github.com/almutairi-dev/tawseel-backend/api/routes"
	"github.com/almutairi-dev/tawseel-backend/internal/branches"
	"github.com/almutairi-dev/tawseel-backend/internal/cleanup"
	"github.com/almutairi-dev/tawseel-backend/internal/dispatch"
	"github.com/almutairi-dev/tawseel-backend/internal/drivers"
	"github.com/almutairi-dev/tawseel-backend/internal/links"
	"github.com/almutairi-dev/tawseel-backend/internal/orders"
	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	"github.com/almutairi-dev/tawseel-backend/pkg/db"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
	"github.com/almutairi-dev/tawseel-backend/pkg/migrate"
	"github.com/almutairi-dev/tawseel-backend/pkg/redis"
	"github.com/almutairi-dev/tawseel-backend/pkg/storage/s3"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	location, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		logg.Error(context.Background(), "failed to load timezone", err)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	storageClient, err := s3.New(context.Background(), cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	linkGenerator, err := links.NewGenerator(cfg.Links)
	if err != nil {
		logg.Error(context.Background(), "failed to create link generator", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	branchRepo := branches.NewRepository(dbClient.DB())
	driverRepo := drivers.NewRepository(dbClient.DB())

	orderService, err := orders.NewService(orderRepo, storageClient, redisClient, branchRepo, driverRepo, cfg.Media, location, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	dispatchService, err := dispatch.NewService(orderRepo, linkGenerator, cfg.Dispatch)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	branchService, err := branches.NewService(branchRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create branch service", err)
		os.Exit(1)
	}

	driverService, err := drivers.NewService(driverRepo, cfg.Dispatch)
	if err != nil {
		logg.Error(context.Background(), "failed to create driver service", err)
		os.Exit(1)
	}

	cleanupCoordinator, err := cleanup.NewCoordinator(orderRepo, storageClient, cfg.Cleanup.Concurrency, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cleanup coordinator", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.New(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Orders:      orderService,
			Dispatch:    dispatchService,
			Branches:    branchService,
			Drivers:     driverService,
			Cleanup:     cleanupCoordinator,
			Links:       linkGenerator,
			Idempotency: redisClient,
			Health: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
				"storage":  storageClient,
			},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
