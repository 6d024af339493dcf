package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/almutairi-dev/tawseel-backend/internal/cleanup"
	"github.com/almutairi-dev/tawseel-backend/internal/orders"
	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	"github.com/almutairi-dev/tawseel-backend/pkg/db"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
	"github.com/almutairi-dev/tawseel-backend/pkg/storage/s3"
)

// batchLimit caps how many archived orders one sweep picks up.
const batchLimit = 500

func main() {
	logg := logger.New(logger.Options{ServiceName: "cleanup-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cleanup-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

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

	storageClient, err := s3.New(context.Background(), cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	coordinator, err := cleanup.NewCoordinator(orders.NewRepository(dbClient.DB()), storageClient, cfg.Cleanup.Concurrency, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cleanup coordinator", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"interval":  cfg.Cleanup.Interval.String(),
		"retention": cfg.Cleanup.Retention.String(),
	})
	logg.Info(ctx, "starting cleanup worker")

	sweep := func() {
		cutoff := time.Now().Add(-cfg.Cleanup.Retention)
		report, err := coordinator.PurgeArchivedBefore(ctx, cutoff, batchLimit)
		if err != nil {
			logg.Error(ctx, "cleanup sweep failed", err)
			return
		}
		logg.Info(logg.WithFields(ctx, map[string]any{
			"orders_processed":    report.OrdersProcessed,
			"orders_deleted":      report.OrdersDeleted,
			"orders_skipped":      report.OrdersSkipped,
			"attachments_deleted": report.AttachmentsDeleted,
			"attachment_failures": report.AttachmentFailures,
		}), "cleanup sweep complete")
	}

	sweep()

	ticker := time.NewTicker(cfg.Cleanup.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logg.Info(ctx, "cleanup worker shutting down")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
