// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/joho/godotenv"
)

// Known quote provider names, in default fallback order.
var knownProviders = []string{"finnhub", "yahoo", "alphavantage"}

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Quotes    QuotesConfig
	Valuation ValuationConfig
	Schedule  ScheduleConfig
	Currency  CurrencyConfig
	Backup    BackupConfig
}

// QuotesConfig controls the quote providers and their retry budget
type QuotesConfig struct {
	Providers          []string // Fallback order
	FinnhubKey         string
	AlphaVantageKey    string
	RetryBaseDelay     time.Duration // Attempt k waits k × RetryBaseDelay
	InteractiveRetries int
	BatchRetries       int
	InteractiveDelay   time.Duration // Pause between symbols in bulk API calls
}

// ValuationConfig controls cache staleness and profit recalculation
type ValuationConfig struct {
	Timezone          string // IANA zone for the cache cutover and "today"
	CacheCutover      string // hh:mm
	RecalcStartDate   string // YYYY-MM-DD
	PersistIncomplete bool   // Save records that fell back to average cost
}

// ScheduleConfig holds cron expressions (with seconds) of background jobs
type ScheduleConfig struct {
	Refresh      string
	RefreshDelay time.Duration
	Backup       string
}

// CurrencyConfig holds the display-currency conversion settings
type CurrencyConfig struct {
	Base    domain.Currency
	Display domain.Currency
}

// BackupConfig holds S3-compatible backup settings. Backups are disabled
// when Bucket is empty.
type BackupConfig struct {
	Bucket          string
	Prefix          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int
}

// Enabled reports whether backups are configured
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("INVESTLOG_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("PORT", 3001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		Quotes: QuotesConfig{
			Providers:          getEnvAsList("QUOTE_PROVIDERS", knownProviders),
			FinnhubKey:         getEnv("FINNHUB_KEY", ""),
			AlphaVantageKey:    getEnv("ALPHAVANTAGE_KEY", ""),
			RetryBaseDelay:     getEnvAsDuration("QUOTE_RETRY_BASE_DELAY", 2*time.Second),
			InteractiveRetries: getEnvAsInt("QUOTE_RETRIES_INTERACTIVE", 1),
			BatchRetries:       getEnvAsInt("QUOTE_RETRIES_BATCH", 2),
			InteractiveDelay:   getEnvAsDuration("INTERACTIVE_DELAY", 500*time.Millisecond),
		},
		Valuation: ValuationConfig{
			Timezone:          getEnv("TIMEZONE", "Asia/Shanghai"),
			CacheCutover:      getEnv("CACHE_CUTOVER", "08:00"),
			RecalcStartDate:   getEnv("RECALC_START_DATE", "2025-12-03"),
			PersistIncomplete: getEnvAsBool("PERSIST_INCOMPLETE", true),
		},
		Schedule: ScheduleConfig{
			Refresh:      getEnv("REFRESH_SCHEDULE", "0 0 8 * * *"),
			RefreshDelay: getEnvAsDuration("REFRESH_DELAY", time.Second),
			Backup:       getEnv("BACKUP_SCHEDULE", "0 30 3 * * *"),
		},
		Currency: CurrencyConfig{
			Base:    domain.Currency(strings.ToUpper(getEnv("BASE_CURRENCY", "USD"))),
			Display: domain.Currency(strings.ToUpper(getEnv("DISPLAY_CURRENCY", "CNY"))),
		},
		Backup: BackupConfig{
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Prefix:          getEnv("BACKUP_PREFIX", "investlog-backup"),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location resolves the configured time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Valuation.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Valuation.Timezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if _, _, err := ParseCutover(c.Valuation.CacheCutover); err != nil {
		return err
	}

	if err := domain.ValidateDate(c.Valuation.RecalcStartDate); err != nil {
		return fmt.Errorf("invalid RECALC_START_DATE: %w", err)
	}

	if len(c.Quotes.Providers) == 0 {
		return fmt.Errorf("QUOTE_PROVIDERS must name at least one provider")
	}
	for _, p := range c.Quotes.Providers {
		if !isKnownProvider(p) {
			return fmt.Errorf("unknown quote provider %q (known: %s)", p, strings.Join(knownProviders, ", "))
		}
	}

	if c.Quotes.InteractiveRetries < 0 || c.Quotes.BatchRetries < 0 {
		return fmt.Errorf("quote retry budgets must not be negative")
	}

	if c.Backup.Enabled() && c.Backup.RetentionDays < 1 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must be at least 1")
	}

	return nil
}

// ParseCutover parses an hh:mm time of day
func ParseCutover(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid CACHE_CUTOVER %q: must be hh:mm", s)
	}
	return t.Hour(), t.Minute(), nil
}

func isKnownProvider(name string) bool {
	for _, k := range knownProviders {
		if k == name {
			return true
		}
	}
	return false
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
