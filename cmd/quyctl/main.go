package main

import (
	"os"

	"quy/internal/amqp"
	"quy/internal/cli"
	"quy/internal/commands"
	"quy/internal/core"
	"quy/internal/ledger"
	"quy/internal/log"
	"quy/internal/services"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.LoadEnvFile()
	logger := cli.SetupCLILogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	store, closeKV := cli.MustOpenLedger(ctx, logger, cfg)
	defer closeKV()

	resolve, err := cli.NewResolver(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize sync target", log.FieldError, err, "target", cfg.SyncTarget)
		return 1
	}

	var publisher services.LedgerPublisher
	if cfg.SyncDispatch == "amqp" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			return 1
		}
		defer amqpClient.Close()
		publisher = amqpClient
	}

	syncSvc := services.NewSyncService(resolve, publisher, services.SyncServiceConfig{
		IdleAfter: cfg.SyncIdleAfter,
		Timeout:   cfg.SyncTimeout,
	})
	defer syncSvc.Stop()
	store.Subscribe(func(snap ledger.Snapshot) { syncSvc.Trigger(snap) })

	insightSvc, stopInsightCache := cli.NewInsightService(ctx, logger, cfg)
	defer stopInsightCache()

	app := &commands.App{
		Store:               store,
		Sync:                syncSvc,
		Insight:             insightSvc,
		LowBalanceThreshold: core.Money(cfg.LowBalanceThreshold),
		ChartWindowDays:     cfg.ChartWindowDays,
		Location:            cfg.Location(),
	}
	return commands.Execute(ctx, app, os.Args[1:])
}
