package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// Sync bridge
	SyncDispatch  string
	SyncTarget    string
	SyncIdleAfter time.Duration
	SyncTimeout   time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets API target
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Insight bridge
	GeminiAPIKey    string
	InsightModel    string
	InsightTimeout  time.Duration
	InsightCacheTTL time.Duration

	// Dashboard
	LowBalanceThreshold int64
	ChartWindowDays     int
	Timezone            string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/quy.db"),

		SyncDispatch:  getEnv("SYNC_DISPATCH", "direct"),
		SyncTarget:    getEnv("SYNC_TARGET", "webhook"),
		SyncIdleAfter: getEnvDuration("SYNC_IDLE_AFTER", 3*time.Second),
		SyncTimeout:   getEnvDuration("SYNC_TIMEOUT", 30*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "quy"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_ledger"),

		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Sheet1"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		InsightModel:    getEnv("INSIGHT_MODEL", "gemini-3-flash-preview"),
		InsightTimeout:  getEnvDuration("INSIGHT_TIMEOUT", 60*time.Second),
		InsightCacheTTL: getEnvDuration("INSIGHT_CACHE_TTL", 10*time.Minute),

		LowBalanceThreshold: getEnvInt64("LOW_BALANCE_THRESHOLD", 1_000_000),
		ChartWindowDays:     getEnvInt("CHART_WINDOW_DAYS", 7),
		Timezone:            getEnv("TIMEZONE", "Asia/Ho_Chi_Minh"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	validDispatch := []string{"direct", "amqp"}
	if !slices.Contains(validDispatch, c.SyncDispatch) {
		errors = append(errors, fmt.Sprintf("invalid sync dispatch '%s': must be one of %v", c.SyncDispatch, validDispatch))
	}
	validTargets := []string{"webhook", "sheets"}
	if !slices.Contains(validTargets, c.SyncTarget) {
		errors = append(errors, fmt.Sprintf("invalid sync target '%s': must be one of %v", c.SyncTarget, validTargets))
	}

	if c.SyncDispatch == "amqp" {
		if c.AMQPURL == "" {
			errors = append(errors, "AMQP URL is required when sync dispatch is amqp")
		}
		// The worker reloads the ledger from the same database file.
		if c.DataBackend != "sqlite" {
			errors = append(errors, "amqp sync dispatch requires the sqlite backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncTarget == "sheets" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when sync target is sheets")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.SyncIdleAfter <= 0 {
		errors = append(errors, fmt.Sprintf("invalid sync idle delay %v: must be positive", c.SyncIdleAfter))
	}
	if c.SyncTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync timeout %v: must be at least 1 second", c.SyncTimeout))
	}
	if c.InsightTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid insight timeout %v: must be at least 1 second", c.InsightTimeout))
	}
	if c.InsightCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid insight cache TTL %v: must not be negative", c.InsightCacheTTL))
	}

	if c.LowBalanceThreshold < 1 {
		errors = append(errors, fmt.Sprintf("invalid low balance threshold %d: must be at least 1", c.LowBalanceThreshold))
	}
	if c.ChartWindowDays < 1 || c.ChartWindowDays > 366 {
		errors = append(errors, fmt.Sprintf("invalid chart window %d: must be between 1 and 366 days", c.ChartWindowDays))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
