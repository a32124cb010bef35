package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"quy/internal/amqp"
	"quy/internal/cli"
	"quy/internal/core"
	apphttp "quy/internal/http"
	"quy/internal/ledger"
	"quy/internal/log"
	"quy/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	store, closeKV := cli.MustOpenLedger(ctx, logger, cfg)
	defer closeKV()

	resolve, err := cli.NewResolver(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize sync target", log.FieldError, err, "target", cfg.SyncTarget)
		os.Exit(1)
	}

	var publisher services.LedgerPublisher
	if cfg.SyncDispatch == "amqp" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("Sync requests are queued for quy-worker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	syncSvc := services.NewSyncService(resolve, publisher, services.SyncServiceConfig{
		IdleAfter: cfg.SyncIdleAfter,
		Timeout:   cfg.SyncTimeout,
	})
	store.Subscribe(func(snap ledger.Snapshot) { syncSvc.Trigger(snap) })

	insightSvc, stopInsightCache := cli.NewInsightService(ctx, logger, cfg)
	defer stopInsightCache()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:               store,
		Sync:                syncSvc,
		Insight:             insightSvc,
		Logger:              logger,
		LowBalanceThreshold: core.Money(cfg.LowBalanceThreshold),
		ChartWindowDays:     cfg.ChartWindowDays,
		Location:            cfg.Location(),
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting quy server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"sync_dispatch", cfg.SyncDispatch,
			"sync_target", cfg.SyncTarget)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(cli.GracefulShutdown(gctx, logger, 30*time.Second, func(ctx context.Context) error {
		err := srv.Shutdown(ctx)
		syncSvc.Stop()
		insightSvc.Wait()
		return err
	}))

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
