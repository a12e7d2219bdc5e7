package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	ReportOpenAI = "openai"
	ReportOllama = "ollama"
)

type Config struct {
	// HTTP server
	Port     string
	LogLevel string
	// IANA zone used to anchor filter windows and form dates
	Timezone string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// Listing cache
	CacheSize int
	CacheTTL  time.Duration

	// AMQP; an empty URL disables sync publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Report generation
	ReportBackend        string
	ReportAPIKey         string
	ReportBaseURL        string
	ReportModel          string
	ReportTimeout        time.Duration
	ReportPromptMaxChars int
	RevealInterval       time.Duration
	RateLimitPerMinute   int

	// Google Sheets mirror
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	SyncBatchSize   int
	SyncInterval    time.Duration
	SyncConcurrency int
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TIMEZONE", "UTC"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finsight.db"),

		CacheSize: getEnvInt("CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finsight"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_transactions"),

		ReportBackend:        getEnv("REPORT_BACKEND", ReportOpenAI),
		ReportAPIKey:         getEnv("REPORT_API_KEY", ""),
		ReportBaseURL:        getEnv("REPORT_BASE_URL", ""),
		ReportModel:          getEnv("REPORT_MODEL", ""),
		ReportTimeout:        getEnvDuration("REPORT_TIMEOUT", 2*time.Minute),
		ReportPromptMaxChars: getEnvInt("REPORT_PROMPT_MAX_CHARS", 900),
		RevealInterval:       getEnvDuration("REVEAL_INTERVAL", 50*time.Millisecond),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 10),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", ""),

		SyncBatchSize:   getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:    getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		SyncConcurrency: getEnvInt("SYNC_CONCURRENCY", 4),
	}

	if cfg.ReportModel == "" {
		switch cfg.ReportBackend {
		case ReportOllama:
			cfg.ReportModel = "llama3.2"
		default:
			cfg.ReportModel = "gemini-1.5-flash"
		}
	}
	return cfg
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == BackendSQLite && c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.ReportBackend {
	case ReportOpenAI:
		if c.ReportAPIKey == "" {
			errors = append(errors, "REPORT_API_KEY is required for the openai report backend")
		}
	case ReportOllama:
	default:
		errors = append(errors, fmt.Sprintf("invalid report backend '%s': must be one of [%s %s]", c.ReportBackend, ReportOpenAI, ReportOllama))
	}
	if c.ReportBaseURL != "" {
		if parsed, err := url.Parse(c.ReportBaseURL); err != nil || parsed.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid report base URL '%s'", c.ReportBaseURL))
		}
	}
	if c.ReportPromptMaxChars < 1 || c.ReportPromptMaxChars > 100000 {
		errors = append(errors, fmt.Sprintf("invalid prompt size %d: must be between 1 and 100000", c.ReportPromptMaxChars))
	}
	if c.RevealInterval < time.Millisecond || c.RevealInterval > time.Second {
		errors = append(errors, fmt.Sprintf("invalid reveal interval %v: must be between 1ms and 1s", c.RevealInterval))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}

	errors = append(errors, c.validateSync()...)

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSync() []string {
	var errors []string
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}
	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	if c.SyncConcurrency < 1 || c.SyncConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid sync concurrency %d: must be between 1 and 32", c.SyncConcurrency))
	}
	return errors
}

// ValidateWorker checks the settings the sync worker needs on top of
// Validate's.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.DataBackend != BackendSQLite {
		errors = append(errors, "the sync worker requires DATA_BACKEND=sqlite")
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required by the sync worker")
	}
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration invalid:\n- %s", strings.Join(errors, "\n- "))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
