package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBDriver string `envconfig:"DB_DRIVER" default:"postgres"`

	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"airbnb"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"airbnb123"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"london_airbnb"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"SQLITE_PATH" default:"./data/london_airbnb.db"`

	SourceQuery   string `envconfig:"SOURCE_QUERY" default:"SELECT * FROM airbnb_summary"`
	SourceCSVPath string `envconfig:"SOURCE_CSV_PATH"`
	OutputTable   string `envconfig:"OUTPUT_TABLE" default:"airbnb_listings_cleaned"`

	CSVOutputPath  string `envconfig:"CSV_OUTPUT_PATH"`
	XLSXOutputPath string `envconfig:"XLSX_OUTPUT_PATH"`

	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"5"`
	RetryBaseDelay  time.Duration `envconfig:"RETRY_BASE_DELAY" default:"2s"`
	InsertBatchSize int           `envconfig:"INSERT_BATCH_SIZE" default:"200"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	HostInfoColumns []string `envconfig:"HOST_INFO_COLUMNS"`
	ReviewColumns   []string `envconfig:"REVIEW_COLUMNS"`
}

// Load reads the .env file, then the environment, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.DBDriver) {
	case "postgres", "postgresql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.InsertBatchSize <= 0 {
		return fmt.Errorf("config: INSERT_BATCH_SIZE must be positive, got %d", c.InsertBatchSize)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("config: MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}
	if strings.TrimSpace(c.OutputTable) == "" {
		return fmt.Errorf("config: OUTPUT_TABLE must not be empty")
	}
	if c.SourceCSVPath == "" && strings.TrimSpace(c.SourceQuery) == "" {
		return fmt.Errorf("config: one of SOURCE_QUERY or SOURCE_CSV_PATH is required")
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	switch strings.ToLower(c.DBDriver) {
	case "sqlite", "sqlite3":
		return c.SQLitePath
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     c.PostgresHost + ":" + c.PostgresPort,
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=" + url.QueryEscape(c.PostgresSSLMode),
	}
	return u.String()
}
