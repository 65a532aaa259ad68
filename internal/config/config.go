package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	LedgerFromStore  = "store"
	LedgerFromSheets = "sheets"
)

type Config struct {
	// Storage
	SQLiteDBPath string
	DataBackend  string

	// Ledger source and reconciliation
	LedgerSource          string
	TaxonomyFile          string
	ReconcileTolerancePct float64

	// Aggregation
	Concurrency int

	// AMQP
	AMQPURL         string
	AMQPExchange    string
	AMQPQueue       string
	AMQPEventsQueue string

	// Google Sheets
	GoogleSpreadsheetID string
	LedgerSheetName     string
	ResultSheetName     string
	SheetsCacheTTL      time.Duration

	// Observability
	MetricsAddr string
	LogLevel    string
	LogFile     string
}

func Load() *Config {
	return &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/horeca.db"),
		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),

		LedgerSource:          getEnv("LEDGER_SOURCE", LedgerFromStore),
		TaxonomyFile:          getEnv("TAXONOMY_FILE", ""),
		ReconcileTolerancePct: getEnvFloat("RECONCILE_TOLERANCE_PCT", 0.5),

		Concurrency: getEnvInt("AGGREGATION_CONCURRENCY", 4),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "horeca"),
		AMQPQueue:       getEnv("AMQP_QUEUE", "aggregation_requests"),
		AMQPEventsQueue: getEnv("AMQP_EVENTS_QUEUE", "aggregation_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		LedgerSheetName:     getEnv("LEDGER_SHEET_NAME", "Ledger"),
		ResultSheetName:     getEnv("RESULT_SHEET_NAME", ""),
		SheetsCacheTTL:      getEnvDuration("SHEETS_CACHE_TTL", 5*time.Minute),

		MetricsAddr: getEnv("METRICS_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == BackendSQLite && strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	validLedgers := []string{LedgerFromStore, LedgerFromSheets}
	if !slices.Contains(validLedgers, c.LedgerSource) {
		errors = append(errors, fmt.Sprintf("invalid ledger source '%s': must be one of %v", c.LedgerSource, validLedgers))
	}
	if c.LedgerSource == LedgerFromSheets || c.ResultSheetName != "" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when reading from sheets")
		}
	}
	if c.LedgerSource == LedgerFromSheets && c.LedgerSheetName == "" {
		errors = append(errors, "ledger sheet name is required when using sheets ledger source")
	}
	if c.SheetsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid sheets cache TTL %v: must not be negative", c.SheetsCacheTTL))
	}

	if c.TaxonomyFile != "" {
		if _, err := os.Stat(c.TaxonomyFile); err != nil {
			errors = append(errors, fmt.Sprintf("taxonomy file not readable: %s", c.TaxonomyFile))
		}
	}
	if c.ReconcileTolerancePct < 0 || c.ReconcileTolerancePct > 100 {
		errors = append(errors, fmt.Sprintf("invalid reconcile tolerance %v: must be between 0 and 100", c.ReconcileTolerancePct))
	}

	if c.Concurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid aggregation concurrency %d: must be at least 1", c.Concurrency))
	} else if c.Concurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid aggregation concurrency %d: must be at most 64", c.Concurrency))
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

	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid metrics address '%s': %v", c.MetricsAddr, err))
		}
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

// RequireAMQP reports an error when no broker is configured.
func (c *Config) RequireAMQP() error {
	if c.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is required")
	}
	return nil
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
