package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"quy/internal/amqp"
	"quy/internal/cli"
	"quy/internal/log"
	"quy/internal/services"
	"quy/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.SyncDispatch != "amqp" {
		logger.Error("quy-worker requires SYNC_DISPATCH=amqp", "sync_dispatch", cfg.SyncDispatch)
		os.Exit(1)
	}

	logger.Info("Starting quy-worker")

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	store, closeKV := cli.MustOpenLedger(ctx, logger, cfg)
	defer closeKV()

	resolve, err := cli.NewResolver(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize sync target", log.FieldError, err, "target", cfg.SyncTarget)
		os.Exit(1)
	}
	// The worker writes directly; it never republishes.
	syncSvc := services.NewSyncService(resolve, nil, services.SyncServiceConfig{
		IdleAfter: cfg.SyncIdleAfter,
		Timeout:   cfg.SyncTimeout,
	})
	syncWorker := worker.NewSyncWorker(store, syncSvc)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// Catch up on changes made while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSync(ctx); err != nil {
		logger.Error("Failed startup sync", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeLedgerSync(gctx, syncWorker.HandleSyncMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(cli.GracefulShutdown(gctx, logger, 30*time.Second, func(context.Context) error {
		logger.Info("Shutting down worker...")
		syncSvc.Stop()
		return nil
	}))

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
