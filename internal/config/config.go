package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Store     StoreConfig
	Sheets    SheetsConfig
	Sync      SyncConfig
	Reporting ReportingConfig
	MongoDB   MongoDBConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig selects the minimum log level.
type LogConfig struct {
	Level string
}

// StoreConfig locates the local SQLite record store.
type StoreConfig struct {
	Path string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
// Either CredentialsPath (service account) or APIKey authenticates the
// spreadsheet identified by SpreadsheetID.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
}

// Enabled reports whether enough credentials are present to talk to the spreadsheet.
func (c SheetsConfig) Enabled() bool {
	return c.SpreadsheetID != "" && (c.CredentialsPath != "" || c.APIKey != "")
}

// SyncConfig holds the optional periodic sync schedule.
type SyncConfig struct {
	CronSchedule string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// Location resolves the configured timezone.
func (c ReportingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// MongoDBConfig holds settings for the dashboard archive. An empty URI
// disables the archive.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	timeout, err := time.ParseDuration(getenvWithDefault("SYNC_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("SYNC_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Path: getenvWithDefault("FARMBOOK_DB_PATH", "data/farmbook.db"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			APIKey:          os.Getenv("GOOGLE_SHEETS_API_KEY"),
			BaseURL:         getenvWithDefault("GOOGLE_SHEETS_BASE_URL", "https://sheets.googleapis.com/v4/spreadsheets"),
			Timeout:         timeout,
		},
		Sync: SyncConfig{
			CronSchedule: os.Getenv("SYNC_CRON_SCHEDULE"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Africa/Conakry"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "farmbook"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated. Missing
// spreadsheet credentials are not an error: the service runs local-only.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Store.Path == "" {
		return errors.New("FARMBOOK_DB_PATH must not be empty")
	}

	if c.Sheets.Enabled() && c.Sheets.BaseURL == "" {
		return errors.New("GOOGLE_SHEETS_BASE_URL must not be empty")
	}

	if c.Sheets.Timeout <= 0 {
		return errors.New("SYNC_TIMEOUT must be positive")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := c.Reporting.Location(); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Reporting.Timezone, err)
	}

	if c.MongoDB.URI != "" && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided when MONGODB_URI is set")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
