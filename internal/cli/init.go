// Package cli provides common initialization shared by cmd/quy,
// cmd/quy-worker and cmd/quyctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"quy/internal/cache"
	"quy/internal/config"
	"quy/internal/insight"
	"quy/internal/ledger"
	"quy/internal/log"
	ports "quy/internal/sheets"
	gsheet "quy/internal/sheets/google"
	"quy/internal/sheets/webhook"
	"quy/internal/storage"
)

// SetupLogger builds the process logger for level and makes it the default.
func SetupLogger(level, component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// SetupCLILogger is SetupLogger for quyctl: logs go to stderr so they never
// mix with command output, and only warnings show unless level says otherwise.
func SetupCLILogger(level string) *log.Logger {
	if level == "" {
		level = "warn"
	}
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = log.ComponentCLI
	cfg.Output = os.Stderr
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenKV opens the durable store selected by DATA_BACKEND. The returned
// close function is never nil.
func OpenKV(cfg *config.Config) (storage.KV, func() error, error) {
	switch cfg.DataBackend {
	case "memory":
		return storage.NewMemoryKV(), func() error { return nil }, nil
	case "sqlite":
		kv, err := storage.NewSQLiteKV(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store %s: %w", cfg.SQLiteDBPath, err)
		}
		return kv, kv.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}

// MustOpenLedger opens the KV and loads the ledger, exiting on failure. A
// corrupt snapshot is fatal and left on disk for manual repair.
func MustOpenLedger(ctx context.Context, logger *log.Logger, cfg *config.Config) (*ledger.Store, func() error) {
	kv, closeKV, err := OpenKV(cfg)
	if err != nil {
		logger.Error("Failed to open storage", log.FieldError, err, log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	store, err := ledger.Open(ctx, kv)
	if err != nil {
		if errors.Is(err, ledger.ErrCorruptSnapshot) {
			logger.Error("Stored ledger is corrupt; refusing to start", log.FieldError, err, log.FieldOperation, log.OpStartup)
		} else {
			logger.Error("Failed to load ledger", log.FieldError, err, log.FieldOperation, log.OpStartup)
		}
		_ = closeKV()
		os.Exit(1)
	}
	logger.Info("Ledger loaded",
		"backend", cfg.DataBackend,
		log.FieldRecords, store.Len(),
		"sync_configured", store.SyncEndpoint() != "")
	return store, closeKV
}

// NewResolver builds the spreadsheet writer factory selected by SYNC_TARGET.
func NewResolver(ctx context.Context, cfg *config.Config) (ports.Resolver, error) {
	switch cfg.SyncTarget {
	case "webhook":
		return webhook.Resolver(webhook.NewHTTPClient(cfg.SyncTimeout)), nil
	case "sheets":
		svc, err := gsheet.NewService(ctx, gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, err
		}
		return gsheet.Resolver(svc, cfg.GoogleSheetName), nil
	default:
		return nil, fmt.Errorf("unknown sync target %q", cfg.SyncTarget)
	}
}

// NewAnalyzer returns the Gemini analyzer, or nil when no API key is set.
// A nil analyzer makes every analysis return the fallback message.
func NewAnalyzer(ctx context.Context, logger *log.Logger, cfg *config.Config) insight.Analyzer {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; AI analysis will return the fallback message")
		return nil
	}
	a, err := insight.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.InsightModel)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", log.FieldError, err)
		return nil
	}
	return a
}

// NewInsightService wires the analyzer and, when INSIGHT_CACHE_TTL is
// positive, a report cache swept once a minute. The returned stop function
// is never nil.
func NewInsightService(ctx context.Context, logger *log.Logger, cfg *config.Config) (*insight.Service, func()) {
	analyzer := NewAnalyzer(ctx, logger, cfg)
	if cfg.InsightCacheTTL <= 0 {
		return insight.NewService(analyzer, cfg.InsightTimeout), func() {}
	}

	reports := cache.NewLRUCache[insight.Report](insightCacheSize, cfg.InsightCacheTTL)
	manager := cache.NewManager()
	manager.Register(reports)
	manager.StartCleanup(time.Minute)
	return insight.NewService(analyzer, cfg.InsightTimeout, insight.WithCache(reports)), manager.Stop
}

const insightCacheSize = 16

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
	}()
	return ctx, stop
}

// GracefulShutdown returns an errgroup task that waits for ctx to end and
// then runs cleanup with a fresh context bounded by timeout.
func GracefulShutdown(ctx context.Context, logger *log.Logger, timeout time.Duration, cleanup func(context.Context) error) func() error {
	return func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := cleanup(shutdownCtx)
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached", log.FieldOperation, log.OpShutdown)
		} else {
			logger.Info("Shutdown complete", log.FieldOperation, log.OpShutdown)
		}
		return err
	}
}
